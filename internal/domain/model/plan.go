package model

import (
	"time"

	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain"
)

// Plan represents a purchasable IPTV subscription plan with a fixed duration
// in months and a price in the site currency.
type Plan struct {
	ID             string
	Name           string
	DurationMonths int
	Price          decimal.Decimal
	Currency       string
	Published      bool
	CreatedAt      time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, durationMonths int, price decimal.Decimal, currency string) (*Plan, error) {
	if id == "" || name == "" || durationMonths <= 0 || !price.IsPositive() || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:             id,
		Name:           name,
		DurationMonths: durationMonths,
		Price:          price,
		Currency:       currency,
		Published:      true,
		CreatedAt:      time.Now(),
	}, nil
}
