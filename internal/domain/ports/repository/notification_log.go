package repository

import (
	"context"

	"iptv-subscription-backend/internal/domain/model"
)

// NotificationLogRepository records outbound notification attempts.
type NotificationLogRepository interface {
	Save(ctx context.Context, tx Tx, l *model.NotificationLog) error
	// Exists checks whether a notification of this kind/channel was already
	// sent for the transaction (confirmation sends are idempotent).
	Exists(ctx context.Context, tx Tx, transactionID string, kind model.NotificationKind, channel model.NotificationChannel) (bool, error)
}
