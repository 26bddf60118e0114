package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// PromoCode is an admin-managed discount rule. Codes match case-insensitively.
type PromoCode struct {
	ID                string
	Code              string // stored upper-cased
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	StartDate         *time.Time
	EndDate           *time.Time
	MaxUses           *int // nil = uncapped
	CurrentUses       int
	MinPurchaseAmount decimal.Decimal
	Active            bool
	CreatedAt         time.Time
}

// PromoRejectReason explains why a supplied code did not discount. The
// checkout flow degrades silently but records the reason.
type PromoRejectReason string

const (
	PromoRejectNone          PromoRejectReason = ""
	PromoRejectNotFound      PromoRejectReason = "not_found"
	PromoRejectInactive      PromoRejectReason = "inactive"
	PromoRejectOutsideWindow PromoRejectReason = "outside_window"
	PromoRejectOverCap       PromoRejectReason = "over_usage_cap"
	PromoRejectBelowMinimum  PromoRejectReason = "below_minimum_purchase"
)

// NormalizeCode canonicalizes user input for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Usable checks every applicability condition against the purchase amount.
// All conditions must hold; the first failing one is returned.
func (p *PromoCode) Usable(amount decimal.Decimal, now time.Time) PromoRejectReason {
	if !p.Active {
		return PromoRejectInactive
	}
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return PromoRejectOutsideWindow
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return PromoRejectOutsideWindow
	}
	if p.MaxUses != nil && p.CurrentUses >= *p.MaxUses {
		return PromoRejectOverCap
	}
	if p.MinPurchaseAmount.IsPositive() && amount.LessThan(p.MinPurchaseAmount) {
		return PromoRejectBelowMinimum
	}
	return PromoRejectNone
}

// Discount computes the discount for the given amount, rounded half-up to two
// decimal places and clamped so the payable amount never goes negative.
func (p *PromoCode) Discount(amount decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch p.DiscountType {
	case DiscountTypePercentage:
		d = amount.Mul(p.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	case DiscountTypeFixed:
		d = p.DiscountValue.Round(2)
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(amount) {
		return amount
	}
	return d
}
