package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/repository"
)

var _ repository.AffiliateRepository = (*affiliateRepo)(nil)

type affiliateRepo struct{ pool *pgxpool.Pool }

func NewAffiliateRepo(pool *pgxpool.Pool) *affiliateRepo {
	return &affiliateRepo{pool: pool}
}

const affiliateColumns = `id, code, commission_rate, total_referrals, total_earnings, pending_earnings, active, created_at`

func (r *affiliateRepo) Save(ctx context.Context, tx repository.Tx, a *model.Affiliate) error {
	const q = `
INSERT INTO affiliates (id, code, commission_rate, total_referrals, total_earnings, pending_earnings, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  code=$2, commission_rate=$3, active=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.Code, a.CommissionRate, a.TotalReferrals, a.TotalEarnings, a.PendingEarnings, a.Active, a.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *affiliateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Affiliate, error) {
	const q = `SELECT ` + affiliateColumns + ` FROM affiliates WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanAffiliate(row)
}

func (r *affiliateRepo) FindActiveByCode(ctx context.Context, tx repository.Tx, code string) (*model.Affiliate, error) {
	const q = `SELECT ` + affiliateColumns + ` FROM affiliates WHERE code=$1 AND active=TRUE LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanAffiliate(row)
}

// AddEarnings increments the running totals in place so concurrent
// activations never lose an update.
func (r *affiliateRepo) AddEarnings(ctx context.Context, tx repository.Tx, id string, commission decimal.Decimal) error {
	const q = `
UPDATE affiliates
   SET total_referrals = total_referrals + 1,
       total_earnings = total_earnings + $2,
       pending_earnings = pending_earnings + $2
 WHERE id = $1;`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, commission)
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

func scanAffiliate(row pgx.Row) (*model.Affiliate, error) {
	a := &model.Affiliate{}
	if err := row.Scan(&a.ID, &a.Code, &a.CommissionRate, &a.TotalReferrals, &a.TotalEarnings, &a.PendingEarnings, &a.Active, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return a, nil
}
