package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/repository"
)

var _ repository.ReminderRepository = (*reminderRepo)(nil)

type reminderRepo struct{ pool *pgxpool.Pool }

func NewReminderRepo(pool *pgxpool.Pool) *reminderRepo {
	return &reminderRepo{pool: pool}
}

const reminderColumns = `id, transaction_id, email, contact, plan_id, plan_name, amount, currency, payment_url, reminder_count, last_reminded_at, created_at, updated_at`

// UpsertByTransaction inserts the reminder unless one already exists for the
// transaction. The unique index on transaction_id plus ON CONFLICT DO NOTHING
// makes repeated sweeps idempotent: only the first insert reports created.
func (r *reminderRepo) UpsertByTransaction(ctx context.Context, tx repository.Tx, rem *model.AbandonedPaymentReminder) (bool, error) {
	const q = `
INSERT INTO abandoned_payment_reminders (
  id, transaction_id, email, contact, plan_id, plan_name, amount, currency, payment_url, reminder_count, last_reminded_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (transaction_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		rem.ID, rem.TransactionID, rem.Email, rem.Contact, rem.PlanID, rem.PlanName,
		rem.Amount, rem.Currency, rem.PaymentURL, rem.ReminderCount, rem.LastRemindedAt, rem.CreatedAt, rem.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *reminderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AbandonedPaymentReminder, error) {
	const q = `SELECT ` + reminderColumns + ` FROM abandoned_payment_reminders WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanReminder(row)
}

func (r *reminderRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.AbandonedPaymentReminder, error) {
	const q = `SELECT ` + reminderColumns + ` FROM abandoned_payment_reminders WHERE transaction_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return nil, err
	}
	return scanReminder(row)
}

func (r *reminderRepo) ListAll(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.AbandonedPaymentReminder, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + reminderColumns + ` FROM abandoned_payment_reminders ORDER BY created_at DESC OFFSET $1 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, offset, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.AbandonedPaymentReminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *reminderRepo) MarkSent(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `
UPDATE abandoned_payment_reminders
   SET reminder_count = reminder_count + 1,
       last_reminded_at = $2,
       updated_at = NOW()
 WHERE id = $1;`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanReminder(row pgx.Row) (*model.AbandonedPaymentReminder, error) {
	rem := &model.AbandonedPaymentReminder{}
	err := row.Scan(
		&rem.ID, &rem.TransactionID, &rem.Email, &rem.Contact, &rem.PlanID, &rem.PlanName,
		&rem.Amount, &rem.Currency, &rem.PaymentURL, &rem.ReminderCount, &rem.LastRemindedAt, &rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return rem, nil
}
