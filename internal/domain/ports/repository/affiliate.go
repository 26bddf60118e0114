package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain/model"
)

// AffiliateRepository is the port for referral partners.
type AffiliateRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Affiliate) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Affiliate, error)
	// FindActiveByCode resolves an affiliate code; inactive codes are not returned.
	FindActiveByCode(ctx context.Context, tx Tx, code string) (*model.Affiliate, error)
	// AddEarnings increments the running totals for one completed referral.
	AddEarnings(ctx context.Context, tx Tx, id string, commission decimal.Decimal) error
}

// ReferralRepository records per-transaction commission rows.
type ReferralRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Referral) error
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.Referral, error)
	ListByAffiliate(ctx context.Context, tx Tx, affiliateID string) ([]*model.Referral, error)
}
