package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/repository"
)

var _ CatalogUseCase = (*catalogUC)(nil)

// PlanInput is the admin-facing shape for creating or updating a plan.
type PlanInput struct {
	Name           string
	DurationMonths int
	Price          decimal.Decimal
	Currency       string
	Published      bool
}

// PromoInput is the admin-facing shape for creating or updating a promo code.
type PromoInput struct {
	Code              string
	DiscountType      model.DiscountType
	DiscountValue     decimal.Decimal
	StartDate         *time.Time
	EndDate           *time.Time
	MaxUses           *int
	MinPurchaseAmount decimal.Decimal
	Active            bool
}

// CatalogUseCase covers admin management of plans and promo codes.
type CatalogUseCase interface {
	ListPlans(ctx context.Context) ([]*model.Plan, error)
	CreatePlan(ctx context.Context, in PlanInput) (*model.Plan, error)
	UpdatePlan(ctx context.Context, id string, in PlanInput) (*model.Plan, error)
	DeletePlan(ctx context.Context, id string) error

	ListPromos(ctx context.Context) ([]*model.PromoCode, error)
	CreatePromo(ctx context.Context, in PromoInput) (*model.PromoCode, error)
	UpdatePromo(ctx context.Context, id string, in PromoInput) (*model.PromoCode, error)
	DeletePromo(ctx context.Context, id string) error
}

type catalogUC struct {
	plans  repository.PlanRepository
	promos repository.PromoCodeRepository
	log    *zerolog.Logger
}

func NewCatalogUseCase(plans repository.PlanRepository, promos repository.PromoCodeRepository, logger *zerolog.Logger) *catalogUC {
	l := logger.With().Str("component", "CatalogUC").Logger()
	return &catalogUC{plans: plans, promos: promos, log: &l}
}

func (u *catalogUC) ListPlans(ctx context.Context) ([]*model.Plan, error) {
	return u.plans.ListPublished(ctx, nil)
}

func (u *catalogUC) CreatePlan(ctx context.Context, in PlanInput) (*model.Plan, error) {
	plan, err := model.NewPlan(uuid.NewString(), in.Name, in.DurationMonths, in.Price, in.Currency)
	if err != nil {
		return nil, err
	}
	plan.Published = in.Published
	if err := u.plans.Save(ctx, nil, plan); err != nil {
		return nil, err
	}
	u.log.Info().Str("plan_id", plan.ID).Str("name", plan.Name).Msg("plan created")
	return plan, nil
}

func (u *catalogUC) UpdatePlan(ctx context.Context, id string, in PlanInput) (*model.Plan, error) {
	plan, err := u.plans.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if in.Name == "" || in.DurationMonths <= 0 || !in.Price.IsPositive() || in.Currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	plan.Name = in.Name
	plan.DurationMonths = in.DurationMonths
	plan.Price = in.Price
	plan.Currency = in.Currency
	plan.Published = in.Published
	if err := u.plans.Save(ctx, nil, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (u *catalogUC) DeletePlan(ctx context.Context, id string) error {
	return u.plans.Delete(ctx, nil, id)
}

func (u *catalogUC) ListPromos(ctx context.Context) ([]*model.PromoCode, error) {
	return u.promos.ListAll(ctx, nil)
}

func (u *catalogUC) CreatePromo(ctx context.Context, in PromoInput) (*model.PromoCode, error) {
	if err := validatePromo(in); err != nil {
		return nil, err
	}
	code := model.NormalizeCode(in.Code)
	if existing, err := u.promos.FindByCode(ctx, nil, code); err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	}
	p := &model.PromoCode{
		ID:                uuid.NewString(),
		Code:              code,
		DiscountType:      in.DiscountType,
		DiscountValue:     in.DiscountValue,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		MaxUses:           in.MaxUses,
		MinPurchaseAmount: in.MinPurchaseAmount,
		Active:            in.Active,
		CreatedAt:         time.Now(),
	}
	if err := u.promos.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	u.log.Info().Str("promo_id", p.ID).Str("code", p.Code).Msg("promo code created")
	return p, nil
}

func (u *catalogUC) UpdatePromo(ctx context.Context, id string, in PromoInput) (*model.PromoCode, error) {
	if err := validatePromo(in); err != nil {
		return nil, err
	}
	p, err := u.promos.FindByCode(ctx, nil, model.NormalizeCode(in.Code))
	if err == nil && p != nil && p.ID != id {
		return nil, domain.ErrAlreadyExists
	}
	existing, err := u.promos.ListAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	var target *model.PromoCode
	for _, c := range existing {
		if c.ID == id {
			target = c
			break
		}
	}
	if target == nil {
		return nil, domain.ErrNotFound
	}
	target.Code = model.NormalizeCode(in.Code)
	target.DiscountType = in.DiscountType
	target.DiscountValue = in.DiscountValue
	target.StartDate = in.StartDate
	target.EndDate = in.EndDate
	target.MaxUses = in.MaxUses
	target.MinPurchaseAmount = in.MinPurchaseAmount
	target.Active = in.Active
	if err := u.promos.Save(ctx, nil, target); err != nil {
		return nil, err
	}
	return target, nil
}

func (u *catalogUC) DeletePromo(ctx context.Context, id string) error {
	return u.promos.Delete(ctx, nil, id)
}

func validatePromo(in PromoInput) error {
	if model.NormalizeCode(in.Code) == "" {
		return domain.ErrInvalidArgument
	}
	switch in.DiscountType {
	case model.DiscountTypePercentage:
		if !in.DiscountValue.IsPositive() || in.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return domain.ErrInvalidArgument
		}
	case model.DiscountTypeFixed:
		if !in.DiscountValue.IsPositive() {
			return domain.ErrInvalidArgument
		}
	default:
		return domain.ErrInvalidArgument
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return domain.ErrInvalidArgument
	}
	return nil
}
