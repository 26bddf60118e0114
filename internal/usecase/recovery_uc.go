package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/adapter"
	"iptv-subscription-backend/internal/domain/ports/repository"
	"iptv-subscription-backend/internal/infra/metrics"
)

// Compile-time check
var _ RecoveryUseCase = (*recoveryUC)(nil)

type RecoveryUseCase interface {
	// DetectAbandoned sweeps stale pending transactions and upserts one
	// reminder per transaction. Returns (stale found, reminders created).
	DetectAbandoned(ctx context.Context) (int, int, error)
	// DispatchReminder enqueues the send for one reminder record. Detection
	// and notification are decoupled so cadence is controlled independently.
	DispatchReminder(ctx context.Context, reminderID string) error
}

type recoveryUC struct {
	ledger     repository.TransactionRepository
	plans      repository.PlanRepository
	reminders  repository.ReminderRepository
	checkout   CheckoutUseCase
	dispatch   adapter.Dispatcher
	staleAfter time.Duration
	log        *zerolog.Logger
}

func NewRecoveryUseCase(
	ledger repository.TransactionRepository,
	plans repository.PlanRepository,
	reminders repository.ReminderRepository,
	checkout CheckoutUseCase,
	dispatch adapter.Dispatcher,
	staleAfter time.Duration,
	logger *zerolog.Logger,
) *recoveryUC {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	l := logger.With().Str("component", "RecoveryUC").Logger()
	return &recoveryUC{
		ledger:     ledger,
		plans:      plans,
		reminders:  reminders,
		checkout:   checkout,
		dispatch:   dispatch,
		staleAfter: staleAfter,
		log:        &l,
	}
}

func (u *recoveryUC) DetectAbandoned(ctx context.Context) (int, int, error) {
	cutoff := time.Now().Add(-u.staleAfter)
	stale, err := u.ledger.ListPendingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		return 0, 0, err
	}

	created := 0
	for _, t := range stale {
		// A transaction already holding a reminder must not hit the gateway
		// again: each sweep would otherwise open a fresh checkout session per
		// stale row, forever.
		if _, err := u.reminders.FindByTransactionID(ctx, nil, t.ID); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Err(err).Str("tx_id", t.ID).Msg("skipping stale transaction: reminder lookup failed")
			continue
		}
		plan, err := u.plans.FindByID(ctx, nil, t.PlanID)
		if err != nil {
			u.log.Warn().Err(err).Str("tx_id", t.ID).Msg("skipping stale transaction: plan lookup failed")
			continue
		}
		payURL, err := u.checkout.PaymentURLFor(ctx, t)
		if err != nil {
			u.log.Warn().Err(err).Str("tx_id", t.ID).Msg("skipping stale transaction: payment url regeneration failed")
			continue
		}
		now := time.Now()
		r := &model.AbandonedPaymentReminder{
			ID:            uuid.NewString(),
			TransactionID: t.ID,
			Email:         t.Email,
			Contact:       t.Contact,
			PlanID:        plan.ID,
			PlanName:      plan.Name,
			Amount:        t.FinalAmount,
			Currency:      t.Currency,
			PaymentURL:    payURL,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		inserted, err := u.reminders.UpsertByTransaction(ctx, nil, r)
		if err != nil {
			u.log.Error().Err(err).Str("tx_id", t.ID).Msg("reminder upsert failed")
			continue
		}
		if inserted {
			created++
		}
	}
	if created > 0 {
		metrics.IncRemindersCreated(created)
		u.log.Info().Int("stale", len(stale)).Int("created", created).Msg("abandoned payments detected")
	}
	return len(stale), created, nil
}

func (u *recoveryUC) DispatchReminder(ctx context.Context, reminderID string) error {
	if _, err := u.reminders.FindByID(ctx, nil, reminderID); err != nil {
		return err
	}
	return u.dispatch.EnqueueReminder(ctx, reminderID)
}
