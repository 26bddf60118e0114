package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const transactionColumns = `id, email, contact, plan_id, original_amount, discount_amount, final_amount, currency, method, status, gateway_ref, gateway, promo_code, affiliate_id, invoice_number, refund_amount, refund_ref, paid_at, created_at, updated_at`

func (r *transactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	gateway, err := json.Marshal(t.Gateway)
	if err != nil {
		return domain.ErrInvalidArgument
	}

	const q = `
INSERT INTO transactions (
  id, email, contact, plan_id, original_amount, discount_amount, final_amount, currency, method, status, gateway_ref, gateway, promo_code, affiliate_id, invoice_number, refund_amount, refund_ref, paid_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20
) ON CONFLICT (id) DO UPDATE SET
  email=$2, contact=$3, plan_id=$4, original_amount=$5, discount_amount=$6, final_amount=$7, currency=$8, method=$9, status=$10, gateway_ref=$11, gateway=$12, promo_code=$13, affiliate_id=$14, invoice_number=$15, refund_amount=$16, refund_ref=$17, paid_at=$18, updated_at=$20;`

	_, err = execSQL(ctx, r.pool, tx, q,
		t.ID, t.Email, t.Contact, t.PlanID, t.OriginalAmount, t.DiscountAmount, t.FinalAmount, t.Currency,
		t.Method, t.Status, t.GatewayRef, gateway, t.PromoCode, t.AffiliateID, t.InvoiceNumber,
		t.RefundAmount, t.RefundRef, t.PaidAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *transactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) FindByGatewayRef(ctx context.Context, tx repository.Tx, ref string) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE gateway_ref=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, ref)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

// MarkCompletedIfPending atomically flips a pending row to completed. The
// WHERE status='pending' guard is what serializes the webhook/poll race:
// exactly one caller observes RowsAffected==1.
func (r *transactionRepo) MarkCompletedIfPending(ctx context.Context, tx repository.Tx, id string, gatewayRef string, paidAt time.Time) (bool, error) {
	const q = `
UPDATE transactions
   SET status = 'completed',
       gateway_ref = COALESCE(NULLIF($2, ''), gateway_ref),
       paid_at = $3,
       updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, gatewayRef, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE transactions
   SET status = 'failed',
       updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// SetCardPaymentIntent patches only the card branch of the gateway payload.
// A full-row write here would let a stale snapshot clobber a concurrent
// status transition.
func (r *transactionRepo) SetCardPaymentIntent(ctx context.Context, tx repository.Tx, id string, paymentIntent string) error {
	const q = `
UPDATE transactions
   SET gateway = jsonb_set(gateway, '{card,payment_intent}', to_jsonb($2::text)),
       updated_at = NOW()
 WHERE id = $1
   AND gateway ? 'card';`

	_, err := execSQL(ctx, r.pool, tx, q, id, paymentIntent)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *transactionRepo) RecordRefund(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus, refundAmount decimal.Decimal, refundRef string) error {
	const q = `
UPDATE transactions
   SET status = $2,
       refund_amount = $3,
       refund_ref = $4,
       updated_at = NOW()
 WHERE id = $1
   AND status IN ('completed','partially_refunded');`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), refundAmount, refundRef)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *transactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + transactionColumns + ` FROM transactions WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case pgx.ErrNoRows:
			return nil, domain.ErrNotFound
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *transactionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.TransactionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM transactions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	out := make(map[model.TransactionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.TransactionStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// SumCompletedByPeriod sums revenue for the period ('day','week','month') or
// all time when period is 'all'. Refunded amounts stay counted; refunds are a
// separate ledger dimension.
func (r *transactionRepo) SumCompletedByPeriod(ctx context.Context, tx repository.Tx, period string) (decimal.Decimal, error) {
	var q string
	var args []interface{}
	if period == "all" {
		q = `SELECT COALESCE(SUM(final_amount),0) FROM transactions WHERE status IN ('completed','refunded','partially_refunded');`
	} else {
		q = `SELECT COALESCE(SUM(final_amount),0) FROM transactions WHERE status IN ('completed','refunded','partially_refunded') AND paid_at >= DATE_TRUNC($1, NOW());`
		args = append(args, period)
	}
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return decimal.Zero, err
	}

	var sum decimal.Decimal
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	var gateway []byte
	err := row.Scan(
		&t.ID, &t.Email, &t.Contact, &t.PlanID, &t.OriginalAmount, &t.DiscountAmount, &t.FinalAmount,
		&t.Currency, &t.Method, &t.Status, &t.GatewayRef, &gateway, &t.PromoCode, &t.AffiliateID,
		&t.InvoiceNumber, &t.RefundAmount, &t.RefundRef, &t.PaidAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(gateway) > 0 {
		if err := json.Unmarshal(gateway, &t.Gateway); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return t, nil
}
