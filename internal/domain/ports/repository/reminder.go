package repository

import (
	"context"
	"time"

	"iptv-subscription-backend/internal/domain/model"
)

// ReminderRepository is the port for abandoned-payment recovery bookkeeping.
type ReminderRepository interface {
	// UpsertByTransaction creates the reminder for a transaction if none
	// exists yet; a second call for the same transaction is a no-op.
	// Returns whether a new row was created.
	UpsertByTransaction(ctx context.Context, tx Tx, r *model.AbandonedPaymentReminder) (bool, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.AbandonedPaymentReminder, error)
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.AbandonedPaymentReminder, error)
	ListAll(ctx context.Context, tx Tx, offset, limit int) ([]*model.AbandonedPaymentReminder, error)
	// MarkSent increments the send counter and stamps the send time.
	MarkSent(ctx context.Context, tx Tx, id string, at time.Time) error
}
