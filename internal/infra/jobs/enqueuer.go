package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/domain/ports/adapter"
	"iptv-subscription-backend/internal/infra/metrics"
)

var _ adapter.Dispatcher = (*Enqueuer)(nil)

// Enqueuer pushes notification work onto the queue. Sending is decoupled from
// the payment path: a full queue or Redis hiccup surfaces here, not in the
// webhook handler's transaction.
type Enqueuer struct {
	client *asynq.Client
	log    *zerolog.Logger
}

func NewEnqueuer(client *asynq.Client, logger *zerolog.Logger) *Enqueuer {
	l := logger.With().Str("component", "JobEnqueuer").Logger()
	return &Enqueuer{client: client, log: &l}
}

func (e *Enqueuer) EnqueueConfirmation(ctx context.Context, transactionID string) error {
	task, err := NewConfirmationTask(transactionID)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		metrics.IncJob(TypeConfirmationSend, "enqueue_failed")
		return err
	}
	metrics.IncJob(TypeConfirmationSend, "enqueued")
	e.log.Debug().Str("task_id", info.ID).Str("tx_id", transactionID).Msg("confirmation enqueued")
	return nil
}

func (e *Enqueuer) EnqueueReminder(ctx context.Context, reminderID string) error {
	task, err := NewReminderTask(reminderID)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		metrics.IncJob(TypeReminderSend, "enqueue_failed")
		return err
	}
	metrics.IncJob(TypeReminderSend, "enqueued")
	e.log.Debug().Str("task_id", info.ID).Str("reminder_id", reminderID).Msg("reminder enqueued")
	return nil
}
