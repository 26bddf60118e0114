package repository

import (
	"context"
	"time"

	"iptv-subscription-backend/internal/domain/model"
)

// SubscriptionRepository is the port for buyer entitlements.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.Subscription, error)
	// FindActiveByEmailAndPlan backs the extend-existing policy on repeat purchase.
	FindActiveByEmailAndPlan(ctx context.Context, tx Tx, email, planID string) (*model.Subscription, error)
	ListByEmail(ctx context.Context, tx Tx, email string) ([]*model.Subscription, error)

	// ExpireDue marks active subscriptions with end_date in the past as
	// expired, returning how many rows transitioned.
	ExpireDue(ctx context.Context, tx Tx, now time.Time) (int, error)

	CountActiveByPlan(ctx context.Context, tx Tx) (map[string]int, error)
}
