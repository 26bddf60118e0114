package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/infra/metrics"
	"iptv-subscription-backend/internal/usecase"
)

// Processor consumes notification tasks and hands them to the notification
// use case.
type Processor struct {
	notifications usecase.NotificationUseCase
	log           *zerolog.Logger
}

func NewProcessor(notifications usecase.NotificationUseCase, logger *zerolog.Logger) *Processor {
	l := logger.With().Str("component", "JobProcessor").Logger()
	return &Processor{notifications: notifications, log: &l}
}

// Register attaches the task handlers to the mux.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeConfirmationSend, p.handleConfirmation)
	mux.HandleFunc(TypeReminderSend, p.handleReminder)
}

func (p *Processor) handleConfirmation(ctx context.Context, t *asynq.Task) error {
	var payload ConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		metrics.IncJob(TypeConfirmationSend, "malformed")
		return fmt.Errorf("confirmation payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.notifications.SendConfirmation(ctx, payload.TransactionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// the transaction vanished; retrying will not help
			metrics.IncJob(TypeConfirmationSend, "skipped")
			return fmt.Errorf("transaction %s: %v: %w", payload.TransactionID, err, asynq.SkipRetry)
		}
		metrics.IncJob(TypeConfirmationSend, "failed")
		return err
	}
	metrics.IncJob(TypeConfirmationSend, "processed")
	return nil
}

func (p *Processor) handleReminder(ctx context.Context, t *asynq.Task) error {
	var payload ReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		metrics.IncJob(TypeReminderSend, "malformed")
		return fmt.Errorf("reminder payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.notifications.SendReminder(ctx, payload.ReminderID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncJob(TypeReminderSend, "skipped")
			return fmt.Errorf("reminder %s: %v: %w", payload.ReminderID, err, asynq.SkipRetry)
		}
		metrics.IncJob(TypeReminderSend, "failed")
		return err
	}
	metrics.IncJob(TypeReminderSend, "processed")
	return nil
}

// NewServer builds the asynq consumer bound to the notifications queue.
func NewServer(redisAddr, redisPassword string, redisDB int) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword, DB: redisDB},
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				QueueNotifications: 10,
			},
		},
	)
}

// NewClient builds the asynq producer.
func NewClient(redisAddr, redisPassword string, redisDB int) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword, DB: redisDB})
}
