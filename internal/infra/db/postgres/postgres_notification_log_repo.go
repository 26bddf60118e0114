package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/repository"
)

var _ repository.NotificationLogRepository = (*notificationLogRepo)(nil)

type notificationLogRepo struct{ pool *pgxpool.Pool }

func NewNotificationLogRepo(pool *pgxpool.Pool) *notificationLogRepo {
	return &notificationLogRepo{pool: pool}
}

func (r *notificationLogRepo) Save(ctx context.Context, tx repository.Tx, l *model.NotificationLog) error {
	const q = `
INSERT INTO notification_logs (id, transaction_id, kind, channel, recipient, ok, error, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	_, err := execSQL(ctx, r.pool, tx, q, l.ID, l.TransactionID, l.Kind, l.Channel, l.Recipient, l.OK, l.Error, l.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *notificationLogRepo) Exists(ctx context.Context, tx repository.Tx, transactionID string, kind model.NotificationKind, channel model.NotificationChannel) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM notification_logs WHERE transaction_id=$1 AND kind=$2 AND channel=$3 AND ok=TRUE);`
	row, err := pickRow(ctx, r.pool, tx, q, transactionID, kind, channel)
	if err != nil {
		return false, err
	}

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}
