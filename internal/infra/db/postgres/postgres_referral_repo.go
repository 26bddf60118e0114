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

var _ repository.ReferralRepository = (*referralRepo)(nil)

type referralRepo struct{ pool *pgxpool.Pool }

func NewReferralRepo(pool *pgxpool.Pool) *referralRepo {
	return &referralRepo{pool: pool}
}

func (r *referralRepo) Save(ctx context.Context, tx repository.Tx, ref *model.Referral) error {
	// transaction_id carries a unique index; one commission per transaction.
	const q = `
INSERT INTO referrals (id, affiliate_id, transaction_id, commission, currency, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`

	_, err := execSQL(ctx, r.pool, tx, q, ref.ID, ref.AffiliateID, ref.TransactionID, ref.Commission, ref.Currency, ref.CreatedAt)
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

func (r *referralRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Referral, error) {
	const q = `SELECT id, affiliate_id, transaction_id, commission, currency, created_at FROM referrals WHERE transaction_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return nil, err
	}
	return scanReferral(row)
}

func (r *referralRepo) ListByAffiliate(ctx context.Context, tx repository.Tx, affiliateID string) ([]*model.Referral, error) {
	const q = `SELECT id, affiliate_id, transaction_id, commission, currency, created_at FROM referrals WHERE affiliate_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, affiliateID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanReferral(row pgx.Row) (*model.Referral, error) {
	ref := &model.Referral{}
	if err := row.Scan(&ref.ID, &ref.AffiliateID, &ref.TransactionID, &ref.Commission, &ref.Currency, &ref.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return ref, nil
}
