package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/repository"
)

var _ repository.PromoCodeRepository = (*promoCodeRepo)(nil)

type promoCodeRepo struct{ pool *pgxpool.Pool }

func NewPromoCodeRepo(pool *pgxpool.Pool) *promoCodeRepo {
	return &promoCodeRepo{pool: pool}
}

const promoColumns = `id, code, discount_type, discount_value, start_date, end_date, max_uses, current_uses, min_purchase_amount, active, created_at`

func (r *promoCodeRepo) Save(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	const q = `
INSERT INTO promo_codes (id, code, discount_type, discount_value, start_date, end_date, max_uses, current_uses, min_purchase_amount, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  code=$2, discount_type=$3, discount_value=$4, start_date=$5, end_date=$6, max_uses=$7, min_purchase_amount=$9, active=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Code, p.DiscountType, p.DiscountValue, p.StartDate, p.EndDate, p.MaxUses, p.CurrentUses, p.MinPurchaseAmount, p.Active, p.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *promoCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	const q = `SELECT ` + promoColumns + ` FROM promo_codes WHERE code=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, model.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	return scanPromo(row)
}

func (r *promoCodeRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.PromoCode, error) {
	const q = `SELECT ` + promoColumns + ` FROM promo_codes ORDER BY created_at DESC;`
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

	var out []*model.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *promoCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM promo_codes WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
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

// IncrementUsage bumps current_uses only while under the cap. The guard lives
// in the WHERE clause so concurrent activations cannot overshoot max_uses.
func (r *promoCodeRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE promo_codes
   SET current_uses = current_uses + 1
 WHERE id = $1
   AND (max_uses IS NULL OR current_uses < max_uses);`

	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func scanPromo(row pgx.Row) (*model.PromoCode, error) {
	p := &model.PromoCode{}
	if err := row.Scan(&p.ID, &p.Code, &p.DiscountType, &p.DiscountValue, &p.StartDate, &p.EndDate, &p.MaxUses, &p.CurrentUses, &p.MinPurchaseAmount, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
