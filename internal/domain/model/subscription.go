package model

import (
	"time"

	"iptv-subscription-backend/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// Subscription is one paid entitlement period, linked back to the transaction
// that created it.
type Subscription struct {
	ID            string // UUID
	Email         string
	PlanID        string
	TransactionID string
	Status        SubscriptionStatus
	StartDate     time.Time
	EndDate       time.Time
	CreatedAt     time.Time
}

// NewSubscription creates an active subscription starting now.
func NewSubscription(id, email string, plan *Plan, transactionID string) (*Subscription, error) {
	if id == "" || email == "" || plan.IsZero() || transactionID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:            id,
		Email:         email,
		PlanID:        plan.ID,
		TransactionID: transactionID,
		Status:        SubscriptionStatusActive,
		StartDate:     now,
		EndDate:       now.AddDate(0, plan.DurationMonths, 0),
		CreatedAt:     now,
	}, nil
}

// Extend pushes the end date out by the plan duration. Used when a buyer
// repurchases a plan they already hold.
func (s *Subscription) Extend(plan *Plan) {
	base := s.EndDate
	if time.Now().After(base) {
		base = time.Now()
	}
	s.EndDate = base.AddDate(0, plan.DurationMonths, 0)
	s.Status = SubscriptionStatusActive
}

// Expired reports whether the entitlement period has passed.
func (s *Subscription) Expired(now time.Time) bool {
	return now.After(s.EndDate)
}
