package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/usecase"
)

// AbandonedWorker periodically sweeps the ledger for stale pending
// transactions and upserts recovery reminders via the use case.
type AbandonedWorker struct {
	interval time.Duration
	recovery usecase.RecoveryUseCase
	log      *zerolog.Logger
}

func NewAbandonedWorker(interval time.Duration, recovery usecase.RecoveryUseCase, logger *zerolog.Logger) *AbandonedWorker {
	wlog := logger.With().Str("component", "AbandonedWorker").Logger()
	return &AbandonedWorker{
		interval: interval,
		recovery: recovery,
		log:      &wlog,
	}
}

func (w *AbandonedWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting abandoned-payment worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping abandoned-payment worker")
			return ctx.Err()
		case <-ticker.C:
			scanned, created, err := w.recovery.DetectAbandoned(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("abandoned sweep error")
			}
			if created > 0 {
				w.log.Info().Int("scanned", scanned).Int("created", created).Msg("abandoned payments detected")
			}
		}
	}
}
