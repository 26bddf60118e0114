package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/adapter"
	"iptv-subscription-backend/internal/domain/ports/repository"
	"iptv-subscription-backend/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// FailureRecorder is the escalation sink for financially-mutating failures.
type FailureRecorder interface {
	Record(ctx context.Context, category string, err error)
}

type PaymentUseCase interface {
	// HandleCryptoCallback verifies and applies a crypto gateway webhook.
	// Unknown status tokens leave the transaction pending.
	HandleCryptoCallback(ctx context.Context, invoice, providerStatus, amount, currency, hash string) (*model.Transaction, error)
	// HandleCardEvent verifies the processor signature and applies the event.
	HandleCardEvent(ctx context.Context, payload []byte, signatureHeader string) (*model.Transaction, error)
	// Status is the read-only poll path; it never transitions state.
	Status(ctx context.Context, transactionID string) (*model.Transaction, error)
}

type paymentUC struct {
	ledger     repository.TransactionRepository
	plans      repository.PlanRepository
	subs       repository.SubscriptionRepository
	promos     repository.PromoCodeRepository
	affiliates repository.AffiliateRepository
	referrals  repository.ReferralRepository
	crypto     adapter.CryptoGateway
	card       adapter.CardGateway
	tm         repository.TransactionManager
	dispatcher adapter.Dispatcher
	failures   FailureRecorder
	log        *zerolog.Logger
}

func NewPaymentUseCase(
	ledger repository.TransactionRepository,
	plans repository.PlanRepository,
	subs repository.SubscriptionRepository,
	promos repository.PromoCodeRepository,
	affiliates repository.AffiliateRepository,
	referrals repository.ReferralRepository,
	crypto adapter.CryptoGateway,
	card adapter.CardGateway,
	tm repository.TransactionManager,
	dispatcher adapter.Dispatcher,
	failures FailureRecorder,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		ledger:     ledger,
		plans:      plans,
		subs:       subs,
		promos:     promos,
		affiliates: affiliates,
		referrals:  referrals,
		crypto:     crypto,
		card:       card,
		tm:         tm,
		dispatcher: dispatcher,
		failures:   failures,
		log:        &l,
	}
}

func (u *paymentUC) HandleCryptoCallback(ctx context.Context, invoice, providerStatus, amount, currency, hash string) (*model.Transaction, error) {
	if invoice == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := u.crypto.VerifyCallback(invoice, providerStatus, amount, currency, hash); err != nil {
		metrics.IncWebhook(u.crypto.Name(), "invalid_signature")
		return nil, err
	}

	t, err := u.ledger.FindByID(ctx, nil, invoice)
	if err != nil {
		metrics.IncWebhook(u.crypto.Name(), "rejected")
		return nil, err
	}

	outcome := u.crypto.MapStatus(providerStatus)
	if outcome == adapter.CanonicalPending {
		// Outside the allow-list (or genuinely still pending): do not touch the row.
		metrics.IncWebhookUnknownStatus(u.crypto.Name())
		u.log.Info().Str("tx_id", t.ID).Str("provider_status", providerStatus).Msg("crypto status not terminal; transaction stays pending")
		return t, nil
	}

	metrics.IncWebhook(u.crypto.Name(), "accepted")
	return u.applyOutcome(ctx, t, outcome)
}

func (u *paymentUC) HandleCardEvent(ctx context.Context, payload []byte, signatureHeader string) (*model.Transaction, error) {
	event, err := u.card.ParseWebhook(payload, signatureHeader)
	if err != nil {
		metrics.IncWebhook(u.card.Name(), "invalid_signature")
		return nil, err
	}
	if event.Kind == adapter.CardEventIgnored {
		metrics.IncWebhook(u.card.Name(), "ignored")
		return nil, nil
	}

	t, err := u.ledger.FindByGatewayRef(ctx, nil, event.SessionID)
	if errors.Is(err, domain.ErrNotFound) && event.ClientReferenceID != "" {
		// Abandoned-payment reminders open a fresh session for the same
		// transaction; the session id we stored is the original one. The
		// client reference carries our transaction id either way.
		t, err = u.ledger.FindByID(ctx, nil, event.ClientReferenceID)
	}
	if err != nil {
		metrics.IncWebhook(u.card.Name(), "rejected")
		return nil, err
	}
	if event.SessionID != "" {
		// Make MarkCompletedIfPending record the session that actually paid.
		t.GatewayRef = event.SessionID
		if t.Gateway.Card != nil {
			t.Gateway.Card.SessionID = event.SessionID
		}
	}
	if event.PaymentIntent != "" && t.Gateway.Card != nil {
		t.Gateway.Card.PaymentIntent = event.PaymentIntent
		if err := u.ledger.SetCardPaymentIntent(ctx, nil, t.ID, event.PaymentIntent); err != nil {
			u.log.Warn().Err(err).Str("tx_id", t.ID).Msg("failed to persist payment intent")
		}
	}

	metrics.IncWebhook(u.card.Name(), "accepted")
	switch event.Kind {
	case adapter.CardEventSessionCompleted:
		return u.applyOutcome(ctx, t, adapter.CanonicalCompleted)
	case adapter.CardEventSessionExpired:
		return u.applyOutcome(ctx, t, adapter.CanonicalFailed)
	default:
		return t, nil
	}
}

func (u *paymentUC) Status(ctx context.Context, transactionID string) (*model.Transaction, error) {
	return u.ledger.FindByID(ctx, nil, transactionID)
}

// applyOutcome drives the ledger state machine. Completion and its side
// effects run in one database transaction; the conditional status update is
// the only serialization point, so duplicate deliveries and webhook/poll
// races collapse to a single activation.
func (u *paymentUC) applyOutcome(ctx context.Context, t *model.Transaction, outcome adapter.CanonicalStatus) (*model.Transaction, error) {
	switch outcome {
	case adapter.CanonicalFailed:
		transitioned, err := u.ledger.MarkFailedIfPending(ctx, nil, t.ID)
		if err != nil {
			u.failures.Record(ctx, "ledger_update", err)
			return nil, err
		}
		if transitioned {
			t.Status = model.TransactionStatusFailed
			metrics.IncTransaction(string(t.Status), string(t.Method))
			u.log.Info().Str("tx_id", t.ID).Msg("transaction failed")
		}
		return t, nil

	case adapter.CanonicalCompleted:
		var activated bool
		err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			transitioned, err := u.ledger.MarkCompletedIfPending(ctx, tx, t.ID, t.GatewayRef, time.Now())
			if err != nil {
				return err
			}
			if !transitioned {
				// already terminal: duplicate delivery, nothing more to do
				return nil
			}
			activated = true
			return u.activate(ctx, tx, t)
		})
		if err != nil {
			u.failures.Record(ctx, "activation", err)
			return nil, err
		}
		if activated {
			t.Status = model.TransactionStatusCompleted
			metrics.IncTransaction(string(t.Status), string(t.Method))
			revenue, _ := t.FinalAmount.Float64()
			metrics.AddPaymentRevenue(t.Currency, revenue)
			u.notifyConfirmation(ctx, t)
		} else {
			u.log.Debug().Str("tx_id", t.ID).Msg("duplicate completion ignored")
		}
		return u.ledger.FindByID(ctx, nil, t.ID)

	default:
		return t, nil
	}
}

// activate performs the post-payment side effects inside the completion
// transaction: subscription create/extend, promo usage increment, referral
// crediting.
func (u *paymentUC) activate(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	plan, err := u.plans.FindByID(ctx, tx, t.PlanID)
	if err != nil {
		return err
	}

	existing, err := u.subs.FindActiveByEmailAndPlan(ctx, tx, t.Email, t.PlanID)
	switch {
	case err == nil && existing != nil:
		existing.Extend(plan)
		if err := u.subs.Save(ctx, tx, existing); err != nil {
			return err
		}
	case errors.Is(err, domain.ErrNotFound) || existing == nil:
		sub, err := model.NewSubscription(uuid.NewString(), t.Email, plan, t.ID)
		if err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
	default:
		return err
	}
	metrics.IncSubscriptionsActivated()

	if t.PromoCode != "" {
		promo, err := u.promos.FindByCode(ctx, tx, t.PromoCode)
		if err == nil {
			if ok, err := u.promos.IncrementUsage(ctx, tx, promo.ID); err != nil {
				return err
			} else if !ok {
				// cap raced to exhaustion between checkout and completion;
				// the discount already applied, only the counter stays put
				u.log.Warn().Str("tx_id", t.ID).Str("code", t.PromoCode).Msg("promo cap reached before completion")
			}
		}
	}

	if t.AffiliateID != nil {
		aff, err := u.affiliates.FindByID(ctx, tx, *t.AffiliateID)
		if err != nil {
			return err
		}
		commission := aff.Commission(t.FinalAmount)
		ref := &model.Referral{
			ID:            uuid.NewString(),
			AffiliateID:   aff.ID,
			TransactionID: t.ID,
			Commission:    commission,
			Currency:      t.Currency,
			CreatedAt:     time.Now(),
		}
		if err := u.referrals.Save(ctx, tx, ref); err != nil {
			return err
		}
		if err := u.affiliates.AddEarnings(ctx, tx, aff.ID, commission); err != nil {
			return err
		}
	}
	return nil
}

// notifyConfirmation enqueues the confirmation send. Best-effort: a queue
// failure is recorded but never fails the payment.
func (u *paymentUC) notifyConfirmation(ctx context.Context, t *model.Transaction) {
	if err := u.dispatcher.EnqueueConfirmation(ctx, t.ID); err != nil {
		u.failures.Record(ctx, "notification_dispatch", err)
		u.log.Error().Err(err).Str("tx_id", t.ID).Msg("failed to enqueue confirmation")
	}
}
