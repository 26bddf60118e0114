package adapter

import "context"

// Dispatcher enqueues decoupled notification work. The queue implementation
// lives in infra; use cases only name the intent.
type Dispatcher interface {
	// EnqueueConfirmation schedules the post-payment confirmation send.
	EnqueueConfirmation(ctx context.Context, transactionID string) error
	// EnqueueReminder schedules one abandoned-payment reminder send.
	EnqueueReminder(ctx context.Context, reminderID string) error
}
