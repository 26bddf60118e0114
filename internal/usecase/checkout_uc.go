package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/adapter"
	"iptv-subscription-backend/internal/domain/ports/repository"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutRequest carries the buyer's plan selection.
type CheckoutRequest struct {
	Email         string
	Contact       string
	PlanID        string
	Method        model.PaymentMethod
	PromoCode     string
	AffiliateCode string
}

// CheckoutResult is the payment handle handed back to the client.
type CheckoutResult struct {
	Transaction *model.Transaction
	PaymentURL  string
	// PromoRejected is set when a supplied code was ignored; checkout still
	// succeeds (silent-discard policy, made observable).
	PromoRejected model.PromoRejectReason
}

type CheckoutUseCase interface {
	// Initiate computes the charge, inserts a pending ledger row and returns
	// a gateway-specific payment handle.
	Initiate(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	// PaymentURLFor regenerates the payment handle for an existing pending
	// transaction (abandoned-payment recovery reuses checkout's rule).
	PaymentURLFor(ctx context.Context, t *model.Transaction) (string, error)
}

type checkoutUC struct {
	plans      repository.PlanRepository
	promos     repository.PromoCodeRepository
	affiliates repository.AffiliateRepository
	ledger     repository.TransactionRepository
	crypto     adapter.CryptoGateway
	card       adapter.CardGateway
	log        *zerolog.Logger
}

func NewCheckoutUseCase(
	plans repository.PlanRepository,
	promos repository.PromoCodeRepository,
	affiliates repository.AffiliateRepository,
	ledger repository.TransactionRepository,
	crypto adapter.CryptoGateway,
	card adapter.CardGateway,
	logger *zerolog.Logger,
) *checkoutUC {
	l := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{
		plans:      plans,
		promos:     promos,
		affiliates: affiliates,
		ledger:     ledger,
		crypto:     crypto,
		card:       card,
		log:        &l,
	}
}

func (u *checkoutUC) Initiate(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if req.Email == "" || req.PlanID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if req.Method != model.PaymentMethodCrypto && req.Method != model.PaymentMethodCard {
		return nil, domain.ErrInvalidArgument
	}

	plan, err := u.plans.FindByID(ctx, nil, req.PlanID)
	if err != nil {
		return nil, err
	}

	amount := plan.Price
	discount := decimal.Zero
	appliedCode := ""
	promoRejected := model.PromoRejectNone
	if req.PromoCode != "" {
		code := model.NormalizeCode(req.PromoCode)
		promo, err := u.promos.FindByCode(ctx, nil, code)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			promoRejected = model.PromoRejectNotFound
		case err != nil:
			// lookup failure degrades to "no discount" rather than aborting checkout
			u.log.Warn().Err(err).Str("code", code).Msg("promo lookup failed; ignoring code")
			promoRejected = model.PromoRejectNotFound
		default:
			if reason := promo.Usable(amount, time.Now()); reason != model.PromoRejectNone {
				promoRejected = reason
			} else {
				discount = promo.Discount(amount)
				appliedCode = promo.Code
			}
		}
		if promoRejected != model.PromoRejectNone {
			u.log.Info().Str("code", code).Str("reason", string(promoRejected)).Msg("promo code ignored")
		}
	}

	var affiliateID *string
	if req.AffiliateCode != "" {
		aff, err := u.affiliates.FindActiveByCode(ctx, nil, req.AffiliateCode)
		if err != nil {
			// unresolvable or inactive codes are dropped silently
			u.log.Info().Str("affiliate_code", req.AffiliateCode).Msg("affiliate code ignored")
		} else {
			affiliateID = &aff.ID
		}
	}

	final := amount.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	now := time.Now()
	t := &model.Transaction{
		ID:             ulid.Make().String(),
		Email:          req.Email,
		Contact:        req.Contact,
		PlanID:         plan.ID,
		OriginalAmount: amount,
		DiscountAmount: discount,
		FinalAmount:    final,
		Currency:       plan.Currency,
		Method:         req.Method,
		Status:         model.TransactionStatusPending,
		PromoCode:      appliedCode,
		AffiliateID:    affiliateID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Ledger row first, gateway handle second. The reverse order can open a
	// live checkout session that no row ever references.
	if err := u.ledger.Save(ctx, nil, t); err != nil {
		return nil, err
	}

	payURL, err := u.buildHandle(ctx, t, plan)
	if err != nil {
		if _, ferr := u.ledger.MarkFailedIfPending(ctx, nil, t.ID); ferr != nil {
			u.log.Error().Err(ferr).Str("tx_id", t.ID).Msg("failed to mark transaction failed after gateway error")
		}
		return nil, err
	}

	if err := u.ledger.Save(ctx, nil, t); err != nil {
		return nil, err
	}

	u.log.Info().
		Str("tx_id", t.ID).
		Str("plan", plan.ID).
		Str("method", string(t.Method)).
		Str("amount", final.StringFixed(2)).
		Msg("checkout initiated")
	return &CheckoutResult{Transaction: t, PaymentURL: payURL, PromoRejected: promoRejected}, nil
}

// buildHandle produces the gateway-specific payment handle and fills in the
// gateway branch of the transaction.
func (u *checkoutUC) buildHandle(ctx context.Context, t *model.Transaction, plan *model.Plan) (string, error) {
	switch t.Method {
	case model.PaymentMethodCrypto:
		payURL, err := u.crypto.BuildPaymentURL(t.ID, t.FinalAmount, t.Currency, t.Email)
		if err != nil {
			return "", err
		}
		t.GatewayRef = t.ID // crypto webhook addresses us by invoice (= transaction) id
		t.Gateway = model.GatewayDetails{Crypto: &model.CryptoDetails{PaymentURL: payURL}}
		return payURL, nil
	case model.PaymentMethodCard:
		meta := map[string]string{
			"transaction_id": t.ID,
			"plan_id":        plan.ID,
		}
		if t.PromoCode != "" {
			meta["promo_code"] = t.PromoCode
		}
		if t.AffiliateID != nil {
			meta["affiliate_id"] = *t.AffiliateID
		}
		sess, err := u.card.CreateCheckoutSession(ctx, t.ID, plan.Name, t.FinalAmount, t.Currency, t.Email, meta)
		if err != nil {
			return "", err
		}
		t.GatewayRef = sess.ID
		t.Gateway = model.GatewayDetails{Card: &model.CardDetails{SessionID: sess.ID}}
		return sess.URL, nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

func (u *checkoutUC) PaymentURLFor(ctx context.Context, t *model.Transaction) (string, error) {
	plan, err := u.plans.FindByID(ctx, nil, t.PlanID)
	if err != nil {
		return "", err
	}
	switch t.Method {
	case model.PaymentMethodCrypto:
		return u.crypto.BuildPaymentURL(t.ID, t.FinalAmount, t.Currency, t.Email)
	case model.PaymentMethodCard:
		sess, err := u.card.CreateCheckoutSession(ctx, t.ID, plan.Name, t.FinalAmount, t.Currency, t.Email, map[string]string{
			"transaction_id": t.ID,
			"plan_id":        plan.ID,
		})
		if err != nil {
			return "", err
		}
		return sess.URL, nil
	default:
		return "", domain.ErrInvalidArgument
	}
}
