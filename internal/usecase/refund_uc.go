package usecase

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/adapter"
	"iptv-subscription-backend/internal/domain/ports/repository"
	"iptv-subscription-backend/internal/infra/metrics"
)

// Compile-time check
var _ RefundUseCase = (*refundUC)(nil)

type RefundUseCase interface {
	// Refund issues a full or partial refund against a completed card
	// transaction. A zero amount refunds the un-refunded remainder.
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) (*model.Transaction, error)
}

type refundUC struct {
	ledger   repository.TransactionRepository
	card     adapter.CardGateway
	failures FailureRecorder
	log      *zerolog.Logger
}

func NewRefundUseCase(ledger repository.TransactionRepository, card adapter.CardGateway, failures FailureRecorder, logger *zerolog.Logger) *refundUC {
	l := logger.With().Str("component", "RefundUC").Logger()
	return &refundUC{ledger: ledger, card: card, failures: failures, log: &l}
}

func (u *refundUC) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) (*model.Transaction, error) {
	t, err := u.ledger.FindByID(ctx, nil, transactionID)
	if err != nil {
		return nil, err
	}
	if t.Method != model.PaymentMethodCard {
		// no reverse rail exists for the crypto gateway
		return nil, domain.ErrUnsupported
	}
	if !t.Refundable() {
		return nil, domain.ErrInvalidTransition
	}

	remainder := t.RefundableRemainder()
	if amount.IsZero() {
		amount = remainder
	}
	if !amount.IsPositive() || amount.GreaterThan(remainder) {
		return nil, domain.ErrInvalidArgument
	}

	intent := ""
	if t.Gateway.Card != nil {
		intent = t.Gateway.Card.PaymentIntent
	}
	if intent == "" {
		return nil, domain.ErrGatewayNotConfigured
	}

	result, err := u.card.Refund(ctx, intent, amount, reason)
	if err != nil {
		u.failures.Record(ctx, "refund", err)
		return nil, err
	}

	total := t.RefundAmount.Add(amount)
	next := model.TransactionStatusPartiallyRefunded
	kind := "partial"
	if total.GreaterThanOrEqual(t.FinalAmount) {
		next = model.TransactionStatusRefunded
		kind = "full"
	}
	if err := u.ledger.RecordRefund(ctx, nil, t.ID, next, total, result.ID); err != nil {
		u.failures.Record(ctx, "ledger_update", err)
		return nil, err
	}
	metrics.IncRefund(kind)
	metrics.IncTransaction(string(next), string(t.Method))

	u.log.Info().
		Str("tx_id", t.ID).
		Str("refund_id", result.ID).
		Str("amount", amount.StringFixed(2)).
		Str("status", string(next)).
		Msg("refund recorded")
	return u.ledger.FindByID(ctx, nil, t.ID)
}
