package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Affiliate tracks a referral partner and their running totals. Totals are
// incremented once per completed referred transaction, never recomputed.
type Affiliate struct {
	ID              string
	Code            string
	CommissionRate  decimal.Decimal // percent
	TotalReferrals  int
	TotalEarnings   decimal.Decimal
	PendingEarnings decimal.Decimal
	Active          bool
	CreatedAt       time.Time
}

// Commission computes the one-time commission for a final charge amount:
// final × rate / 100, rounded to two decimal places.
func (a *Affiliate) Commission(finalAmount decimal.Decimal) decimal.Decimal {
	return finalAmount.Mul(a.CommissionRate).Div(decimal.NewFromInt(100)).Round(2)
}

// Referral links a completed transaction to the affiliate that referred it.
type Referral struct {
	ID            string // UUID
	AffiliateID   string
	TransactionID string
	Commission    decimal.Decimal
	Currency      string
	CreatedAt     time.Time
}
