package usecase

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/repository"
)

var _ StatsUseCase = (*statsUC)(nil)

// RevenueStats is the admin dashboard aggregate.
type RevenueStats struct {
	Today     decimal.Decimal `json:"today"`
	ThisWeek  decimal.Decimal `json:"this_week"`
	ThisMonth decimal.Decimal `json:"this_month"`
	AllTime   decimal.Decimal `json:"all_time"`

	TransactionsByStatus map[model.TransactionStatus]int `json:"transactions_by_status"`
	ActiveByPlan         map[string]int                  `json:"active_by_plan"`
}

type StatsUseCase interface {
	Overview(ctx context.Context) (*RevenueStats, error)
}

type statsUC struct {
	ledger repository.TransactionRepository
	subs   repository.SubscriptionRepository
	log    *zerolog.Logger
}

func NewStatsUseCase(ledger repository.TransactionRepository, subs repository.SubscriptionRepository, logger *zerolog.Logger) *statsUC {
	l := logger.With().Str("component", "StatsUC").Logger()
	return &statsUC{ledger: ledger, subs: subs, log: &l}
}

func (u *statsUC) Overview(ctx context.Context) (*RevenueStats, error) {
	out := &RevenueStats{}
	periods := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"day", &out.Today},
		{"week", &out.ThisWeek},
		{"month", &out.ThisMonth},
		{"all", &out.AllTime},
	}
	for _, p := range periods {
		sum, err := u.ledger.SumCompletedByPeriod(ctx, nil, p.name)
		if err != nil {
			return nil, err
		}
		*p.dst = sum
	}

	byStatus, err := u.ledger.CountByStatus(ctx, nil)
	if err != nil {
		return nil, err
	}
	out.TransactionsByStatus = byStatus

	byPlan, err := u.subs.CountActiveByPlan(ctx, nil)
	if err != nil {
		return nil, err
	}
	out.ActiveByPlan = byPlan
	return out, nil
}
