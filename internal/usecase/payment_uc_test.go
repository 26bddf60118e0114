//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v4"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/adapter"
	"iptv-subscription-backend/internal/domain/ports/repository"
	"iptv-subscription-backend/internal/usecase"
)

type paymentUCTestDeps struct {
	ledger     *MockTransactionRepo
	plans      *MockPlanRepo
	subs       *MockSubscriptionRepo
	promos     *MockPromoRepo
	affiliates *MockAffiliateRepo
	referrals  *MockReferralRepo
	crypto     *MockCryptoGateway
	card       *MockCardGateway
	tm         *MockTxManager
	dispatcher *MockDispatcher
	failures   *MockFailureRecorder
}

func newPaymentUCDeps() *paymentUCTestDeps {
	return &paymentUCTestDeps{
		ledger:     NewMockTransactionRepo(),
		plans:      NewMockPlanRepo(),
		subs:       NewMockSubscriptionRepo(),
		promos:     NewMockPromoRepo(),
		affiliates: NewMockAffiliateRepo(),
		referrals:  NewMockReferralRepo(),
		crypto:     &MockCryptoGateway{},
		card:       &MockCardGateway{},
		tm:         NewMockTxManager(),
		dispatcher: &MockDispatcher{},
		failures:   &MockFailureRecorder{},
	}
}

func (d *paymentUCTestDeps) build() usecase.PaymentUseCase {
	return usecase.NewPaymentUseCase(d.ledger, d.plans, d.subs, d.promos, d.affiliates, d.referrals,
		d.crypto, d.card, d.tm, d.dispatcher, d.failures, newTestLogger())
}

func pendingCryptoTx(id string) *model.Transaction {
	return &model.Transaction{
		ID:             id,
		Email:          "buyer@example.com",
		Contact:        "+15551234567",
		PlanID:         "plan-3m",
		OriginalAmount: dec("29.99"),
		FinalAmount:    dec("29.99"),
		Currency:       "USD",
		Method:         model.PaymentMethodCrypto,
		Status:         model.TransactionStatusPending,
		GatewayRef:     id,
		CreatedAt:      now(),
		UpdatedAt:      now(),
	}
}

func TestPaymentUseCase_HandleCryptoCallback(t *testing.T) {
	ctx := context.Background()
	plan := &model.Plan{ID: "plan-3m", Name: "3 Months", DurationMonths: 3, Price: dec("29.99"), Currency: "USD", Published: true}

	t.Run("paid callback completes the transaction and activates the subscription", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.plans.Save(ctx, nil, plan)
		deps.ledger.Save(ctx, nil, pendingCryptoTx("tx-1"))

		got, err := deps.build().HandleCryptoCallback(ctx, "tx-1", "paid", "29.99", "USD", "deadbeef")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got.Status != model.TransactionStatusCompleted {
			t.Errorf("expected completed, got %s", got.Status)
		}
		if got.PaidAt == nil {
			t.Error("expected paid_at to be stamped")
		}

		sub, err := deps.subs.FindByTransactionID(ctx, nil, "tx-1")
		if err != nil {
			t.Fatalf("expected an activated subscription: %v", err)
		}
		wantEnd := sub.StartDate.AddDate(0, 3, 0)
		if !sub.EndDate.Equal(wantEnd) {
			t.Errorf("expected end date %s, got %s", wantEnd, sub.EndDate)
		}
		if len(deps.dispatcher.Confirmations) != 1 {
			t.Errorf("expected one confirmation enqueued, got %d", len(deps.dispatcher.Confirmations))
		}
	})

	t.Run("duplicate delivery activates exactly once", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.plans.Save(ctx, nil, plan)
		tr := pendingCryptoTx("tx-dup")
		tr.PromoCode = "SAVE10"
		deps.ledger.Save(ctx, nil, tr)
		deps.promos.Save(ctx, nil, &model.PromoCode{ID: "promo-1", Code: "SAVE10", DiscountType: model.DiscountTypePercentage, DiscountValue: dec("10"), Active: true})

		uc := deps.build()
		for i := 0; i < 3; i++ {
			if _, err := uc.HandleCryptoCallback(ctx, "tx-dup", "paid", "26.99", "USD", "deadbeef"); err != nil {
				t.Fatalf("delivery %d: %v", i, err)
			}
		}

		subs, _ := deps.subs.ListByEmail(ctx, nil, "buyer@example.com")
		if len(subs) != 1 {
			t.Fatalf("expected exactly one subscription, got %d", len(subs))
		}
		promo, _ := deps.promos.FindByCode(ctx, nil, "SAVE10")
		if promo.CurrentUses != 1 {
			t.Errorf("expected promo usage incremented once, got %d", promo.CurrentUses)
		}
		if len(deps.dispatcher.Confirmations) != 1 {
			t.Errorf("expected one confirmation enqueued, got %d", len(deps.dispatcher.Confirmations))
		}
	})

	t.Run("repeat purchase extends the existing subscription", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.plans.Save(ctx, nil, plan)
		deps.ledger.Save(ctx, nil, pendingCryptoTx("tx-first"))
		deps.ledger.Save(ctx, nil, pendingCryptoTx("tx-second"))

		uc := deps.build()
		if _, err := uc.HandleCryptoCallback(ctx, "tx-first", "paid", "29.99", "USD", "h"); err != nil {
			t.Fatal(err)
		}
		firstSub, _ := deps.subs.FindByTransactionID(ctx, nil, "tx-first")
		if _, err := uc.HandleCryptoCallback(ctx, "tx-second", "paid", "29.99", "USD", "h"); err != nil {
			t.Fatal(err)
		}

		subs, _ := deps.subs.ListByEmail(ctx, nil, "buyer@example.com")
		if len(subs) != 1 {
			t.Fatalf("expected a single extended subscription, got %d", len(subs))
		}
		if !subs[0].EndDate.After(firstSub.EndDate) {
			t.Error("expected the end date to be pushed out by the second purchase")
		}
	})

	t.Run("affiliate commission is credited on completion", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.plans.Save(ctx, nil, plan)
		deps.affiliates.Save(ctx, nil, &model.Affiliate{ID: "aff-1", Code: "partner", CommissionRate: dec("20"), Active: true})
		tr := pendingCryptoTx("tx-aff")
		affID := "aff-1"
		tr.AffiliateID = &affID
		deps.ledger.Save(ctx, nil, tr)

		if _, err := deps.build().HandleCryptoCallback(ctx, "tx-aff", "paid", "29.99", "USD", "h"); err != nil {
			t.Fatal(err)
		}

		ref, err := deps.referrals.FindByTransactionID(ctx, nil, "tx-aff")
		if err != nil {
			t.Fatalf("expected a referral row: %v", err)
		}
		// 29.99 * 20% = 5.998, rounds to 6.00
		if !ref.Commission.Equal(dec("6.00")) {
			t.Errorf("expected commission 6.00, got %s", ref.Commission)
		}
		aff, _ := deps.affiliates.FindByID(ctx, nil, "aff-1")
		if aff.TotalReferrals != 1 || !aff.PendingEarnings.Equal(dec("6.00")) {
			t.Errorf("expected totals (1, 6.00), got (%d, %s)", aff.TotalReferrals, aff.PendingEarnings)
		}
	})

	t.Run("unknown status token leaves the transaction pending", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.plans.Save(ctx, nil, plan)
		deps.ledger.Save(ctx, nil, pendingCryptoTx("tx-odd"))

		got, err := deps.build().HandleCryptoCallback(ctx, "tx-odd", "processing_maybe", "29.99", "USD", "h")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got.Status != model.TransactionStatusPending {
			t.Errorf("expected pending, got %s", got.Status)
		}
		if _, err := deps.subs.FindByTransactionID(ctx, nil, "tx-odd"); !errors.Is(err, domain.ErrNotFound) {
			t.Error("no subscription may be created for a non-terminal status")
		}
	})

	t.Run("failed status marks the transaction failed", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.plans.Save(ctx, nil, plan)
		deps.ledger.Save(ctx, nil, pendingCryptoTx("tx-exp"))

		got, err := deps.build().HandleCryptoCallback(ctx, "tx-exp", "expired", "29.99", "USD", "h")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got.Status != model.TransactionStatusFailed {
			t.Errorf("expected failed, got %s", got.Status)
		}
	})

	t.Run("invalid signature is rejected before any lookup", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.crypto.VerifyCallbackFunc = func(invoice, status, amount, currency, hash string) error {
			return domain.ErrInvalidSignature
		}
		lookups := 0
		deps.ledger.FindByIDFunc = func(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
			lookups++
			return nil, domain.ErrNotFound
		}

		_, err := deps.build().HandleCryptoCallback(ctx, "tx-1", "paid", "29.99", "USD", "forged")
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
		if lookups != 0 {
			t.Error("ledger must not be consulted for a forged callback")
		}
	})

	t.Run("unknown invoice returns not found", func(t *testing.T) {
		deps := newPaymentUCDeps()
		_, err := deps.build().HandleCryptoCallback(ctx, "tx-ghost", "paid", "29.99", "USD", "h")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("activation failure rolls up to the failure recorder", func(t *testing.T) {
		deps := newPaymentUCDeps()
		// plan lookup inside activation fails: plan never saved
		deps.ledger.Save(ctx, nil, pendingCryptoTx("tx-broken"))

		_, err := deps.build().HandleCryptoCallback(ctx, "tx-broken", "paid", "29.99", "USD", "h")
		if err == nil {
			t.Fatal("expected activation to fail")
		}
		if len(deps.failures.Recorded) == 0 || deps.failures.Recorded[0] != "activation" {
			t.Errorf("expected an activation failure record, got %v", deps.failures.Recorded)
		}
	})
}

func TestPaymentUseCase_HandleCardEvent(t *testing.T) {
	ctx := context.Background()
	plan := &model.Plan{ID: "plan-3m", Name: "3 Months", DurationMonths: 3, Price: dec("29.99"), Currency: "USD", Published: true}

	cardTx := func(id, session string) *model.Transaction {
		tr := pendingCryptoTx(id)
		tr.Method = model.PaymentMethodCard
		tr.GatewayRef = session
		tr.Gateway = model.GatewayDetails{Card: &model.CardDetails{SessionID: session}}
		return tr
	}

	t.Run("session completed event completes the transaction", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.plans.Save(ctx, nil, plan)
		deps.ledger.Save(ctx, nil, cardTx("tx-c1", "cs_123"))
		deps.card.ParseWebhookFunc = func(payload []byte, sig string) (*adapter.CardEvent, error) {
			return &adapter.CardEvent{Kind: adapter.CardEventSessionCompleted, SessionID: "cs_123", PaymentIntent: "pi_9"}, nil
		}

		got, err := deps.build().HandleCardEvent(ctx, []byte(`{}`), "sig")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got.Status != model.TransactionStatusCompleted {
			t.Errorf("expected completed, got %s", got.Status)
		}
		if got.Gateway.Card == nil || got.Gateway.Card.PaymentIntent != "pi_9" {
			t.Error("expected the payment intent to be persisted for later refunds")
		}
	})

	t.Run("duplicate delivery with a stale read activates exactly once", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.plans.Save(ctx, nil, plan)
		deps.ledger.Save(ctx, nil, cardTx("tx-race", "cs_race"))
		// Overlapping deliveries both read the row before either completes
		// it; each handler works from a still-pending snapshot.
		deps.ledger.FindByGatewayRefFunc = func(ctx context.Context, tx repository.Tx, ref string) (*model.Transaction, error) {
			if ref != "cs_race" {
				return nil, domain.ErrNotFound
			}
			return cardTx("tx-race", "cs_race"), nil
		}
		deps.card.ParseWebhookFunc = func(payload []byte, sig string) (*adapter.CardEvent, error) {
			return &adapter.CardEvent{Kind: adapter.CardEventSessionCompleted, SessionID: "cs_race", PaymentIntent: "pi_race"}, nil
		}

		uc := deps.build()
		for i := 0; i < 2; i++ {
			if _, err := uc.HandleCardEvent(ctx, []byte(`{}`), "sig"); err != nil {
				t.Fatalf("delivery %d: %v", i, err)
			}
		}

		subs, _ := deps.subs.ListByEmail(ctx, nil, "buyer@example.com")
		if len(subs) != 1 {
			t.Fatalf("expected exactly one subscription, got %d", len(subs))
		}
		wantEnd := subs[0].StartDate.AddDate(0, 3, 0)
		if !subs[0].EndDate.Equal(wantEnd) {
			t.Errorf("second delivery must not extend again: want end %s, got %s", wantEnd, subs[0].EndDate)
		}
		if len(deps.dispatcher.Confirmations) != 1 {
			t.Errorf("expected one confirmation enqueued, got %d", len(deps.dispatcher.Confirmations))
		}
		row, _ := deps.ledger.FindByID(ctx, nil, "tx-race")
		if row.Status != model.TransactionStatusCompleted {
			t.Errorf("expected the row to stay completed, got %s", row.Status)
		}
		if row.Gateway.Card == nil || row.Gateway.Card.PaymentIntent != "pi_race" {
			t.Error("expected the payment intent to be persisted")
		}
	})

	t.Run("completion for a reissued session resolves by client reference", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.plans.Save(ctx, nil, plan)
		deps.ledger.Save(ctx, nil, cardTx("tx-rem", "cs_orig"))
		// Abandoned-payment reminders carry a fresh session; only the
		// client reference still points at the stored transaction.
		deps.card.ParseWebhookFunc = func(payload []byte, sig string) (*adapter.CardEvent, error) {
			return &adapter.CardEvent{Kind: adapter.CardEventSessionCompleted, SessionID: "cs_reissued", PaymentIntent: "pi_r", ClientReferenceID: "tx-rem"}, nil
		}

		got, err := deps.build().HandleCardEvent(ctx, []byte(`{}`), "sig")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got.Status != model.TransactionStatusCompleted {
			t.Errorf("expected completed, got %s", got.Status)
		}
		if got.GatewayRef != "cs_reissued" {
			t.Errorf("expected the paying session to be recorded, got %s", got.GatewayRef)
		}
		if len(deps.dispatcher.Confirmations) != 1 {
			t.Errorf("expected one confirmation enqueued, got %d", len(deps.dispatcher.Confirmations))
		}
	})

	t.Run("unknown session with no client reference is rejected", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.card.ParseWebhookFunc = func(payload []byte, sig string) (*adapter.CardEvent, error) {
			return &adapter.CardEvent{Kind: adapter.CardEventSessionCompleted, SessionID: "cs_ghost"}, nil
		}

		_, err := deps.build().HandleCardEvent(ctx, []byte(`{}`), "sig")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("session expired event fails the transaction", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.plans.Save(ctx, nil, plan)
		deps.ledger.Save(ctx, nil, cardTx("tx-c2", "cs_456"))
		deps.card.ParseWebhookFunc = func(payload []byte, sig string) (*adapter.CardEvent, error) {
			return &adapter.CardEvent{Kind: adapter.CardEventSessionExpired, SessionID: "cs_456"}, nil
		}

		got, err := deps.build().HandleCardEvent(ctx, []byte(`{}`), "sig")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got.Status != model.TransactionStatusFailed {
			t.Errorf("expected failed, got %s", got.Status)
		}
	})

	t.Run("irrelevant event kinds are acknowledged without lookup", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.card.ParseWebhookFunc = func(payload []byte, sig string) (*adapter.CardEvent, error) {
			return &adapter.CardEvent{Kind: adapter.CardEventIgnored}, nil
		}

		got, err := deps.build().HandleCardEvent(ctx, []byte(`{}`), "sig")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got != nil {
			t.Error("ignored events must not resolve a transaction")
		}
	})

	t.Run("bad signature propagates", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.card.ParseWebhookFunc = func(payload []byte, sig string) (*adapter.CardEvent, error) {
			return nil, domain.ErrInvalidSignature
		}

		_, err := deps.build().HandleCardEvent(ctx, []byte(`{}`), "bad")
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
	})
}

func TestPaymentUseCase_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the row without touching state", func(t *testing.T) {
		deps := newPaymentUCDeps()
		deps.ledger.Save(ctx, nil, pendingCryptoTx("tx-s"))

		got, err := deps.build().Status(ctx, "tx-s")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got.Status != model.TransactionStatusPending {
			t.Errorf("poll must not transition state, got %s", got.Status)
		}
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		deps := newPaymentUCDeps()
		if _, err := deps.build().Status(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

// The completion transaction must hold the conditional update and every side
// effect; a mid-flight failure leaves no partial activation behind.
func TestPaymentUseCase_CompletionIsTransactional(t *testing.T) {
	ctx := context.Background()
	deps := newPaymentUCDeps()
	deps.plans.Save(ctx, nil, &model.Plan{ID: "plan-3m", Name: "3 Months", DurationMonths: 3, Price: dec("29.99"), Currency: "USD", Published: true})
	deps.ledger.Save(ctx, nil, pendingCryptoTx("tx-tx"))

	var sawTx bool
	deps.tm.WithTxFunc = func(ctx context.Context, _ pgx.TxOptions, fn func(context.Context, repository.Tx) error) error {
		sawTx = true
		return fn(ctx, repository.NoTX)
	}

	if _, err := deps.build().HandleCryptoCallback(ctx, "tx-tx", "paid", "29.99", "USD", "h"); err != nil {
		t.Fatal(err)
	}
	if !sawTx {
		t.Error("completion must run inside the transaction manager")
	}
}
