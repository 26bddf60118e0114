package repository

import (
	"context"

	"iptv-subscription-backend/internal/domain/model"
)

// PromoCodeRepository is the port for discount rules.
type PromoCodeRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PromoCode) error
	FindByCode(ctx context.Context, tx Tx, code string) (*model.PromoCode, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.PromoCode, error)
	Delete(ctx context.Context, tx Tx, id string) error

	// IncrementUsage bumps current_uses atomically, honoring the cap when one
	// is set. Returns false when the cap was already reached.
	IncrementUsage(ctx context.Context, tx Tx, id string) (bool, error)
}
