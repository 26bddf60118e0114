//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/adapter"
	"iptv-subscription-backend/internal/domain/ports/repository"
)

// -----------------------------
// Utilities
// -----------------------------

func now() time.Time { return time.Now().Truncate(time.Millisecond) }

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================
// Adapters
// =============================

// ---- Mock CryptoGateway ----

type MockCryptoGateway struct {
	BuildPaymentURLFunc func(transactionID string, amount decimal.Decimal, currency, email string) (string, error)
	VerifyCallbackFunc  func(invoice, status, amount, currency, hash string) error
	MapStatusFunc       func(providerStatus string) adapter.CanonicalStatus
}

var _ adapter.CryptoGateway = (*MockCryptoGateway)(nil)

func (m *MockCryptoGateway) Name() string { return "mockcrypto" }

func (m *MockCryptoGateway) BuildPaymentURL(transactionID string, amount decimal.Decimal, currency, email string) (string, error) {
	if m.BuildPaymentURLFunc != nil {
		return m.BuildPaymentURLFunc(transactionID, amount, currency, email)
	}
	return "https://pay.example/invoice/" + transactionID, nil
}

func (m *MockCryptoGateway) VerifyCallback(invoice, status, amount, currency, hash string) error {
	if m.VerifyCallbackFunc != nil {
		return m.VerifyCallbackFunc(invoice, status, amount, currency, hash)
	}
	return nil
}

func (m *MockCryptoGateway) MapStatus(providerStatus string) adapter.CanonicalStatus {
	if m.MapStatusFunc != nil {
		return m.MapStatusFunc(providerStatus)
	}
	switch providerStatus {
	case "paid", "confirmed", "complete", "completed":
		return adapter.CanonicalCompleted
	case "failed", "expired", "cancelled", "canceled":
		return adapter.CanonicalFailed
	default:
		return adapter.CanonicalPending
	}
}

// ---- Mock CardGateway ----

type MockCardGateway struct {
	mu       sync.Mutex
	Sessions []string // created session ids
	Refunds  []decimal.Decimal

	CreateCheckoutSessionFunc func(ctx context.Context, transactionID, planName string, amount decimal.Decimal, currency, email string, metadata map[string]string) (*adapter.CheckoutSession, error)
	ParseWebhookFunc          func(payload []byte, signatureHeader string) (*adapter.CardEvent, error)
	RefundFunc                func(ctx context.Context, paymentIntent string, amount decimal.Decimal, reason string) (*adapter.RefundResult, error)
}

var _ adapter.CardGateway = (*MockCardGateway)(nil)

func (m *MockCardGateway) Name() string { return "mockcard" }

func (m *MockCardGateway) CreateCheckoutSession(ctx context.Context, transactionID, planName string, amount decimal.Decimal, currency, email string, metadata map[string]string) (*adapter.CheckoutSession, error) {
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, transactionID, planName, amount, currency, email, metadata)
	}
	id := "cs_" + transactionID
	m.mu.Lock()
	m.Sessions = append(m.Sessions, id)
	m.mu.Unlock()
	return &adapter.CheckoutSession{ID: id, URL: "https://checkout.example/" + id}, nil
}

func (m *MockCardGateway) ParseWebhook(payload []byte, signatureHeader string) (*adapter.CardEvent, error) {
	if m.ParseWebhookFunc != nil {
		return m.ParseWebhookFunc(payload, signatureHeader)
	}
	return &adapter.CardEvent{Kind: adapter.CardEventIgnored}, nil
}

func (m *MockCardGateway) Refund(ctx context.Context, paymentIntent string, amount decimal.Decimal, reason string) (*adapter.RefundResult, error) {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, paymentIntent, amount, reason)
	}
	m.mu.Lock()
	m.Refunds = append(m.Refunds, amount)
	m.mu.Unlock()
	return &adapter.RefundResult{ID: "re_" + paymentIntent, Status: "succeeded", Amount: amount, CreatedAt: now()}, nil
}

// ---- Mock Dispatcher ----

type MockDispatcher struct {
	mu            sync.Mutex
	Confirmations []string
	Reminders     []string

	EnqueueConfirmationFunc func(ctx context.Context, transactionID string) error
	EnqueueReminderFunc     func(ctx context.Context, reminderID string) error
}

var _ adapter.Dispatcher = (*MockDispatcher)(nil)

func (m *MockDispatcher) EnqueueConfirmation(ctx context.Context, transactionID string) error {
	if m.EnqueueConfirmationFunc != nil {
		return m.EnqueueConfirmationFunc(ctx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Confirmations = append(m.Confirmations, transactionID)
	return nil
}

func (m *MockDispatcher) EnqueueReminder(ctx context.Context, reminderID string) error {
	if m.EnqueueReminderFunc != nil {
		return m.EnqueueReminderFunc(ctx, reminderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reminders = append(m.Reminders, reminderID)
	return nil
}

// ---- Mock notification channels ----

type MockEmailSender struct {
	mu   sync.Mutex
	Sent []adapter.EmailMessage

	SendFunc func(ctx context.Context, msg adapter.EmailMessage) error
}

var _ adapter.EmailSender = (*MockEmailSender)(nil)

func (m *MockEmailSender) Name() string { return "email" }

func (m *MockEmailSender) Send(ctx context.Context, msg adapter.EmailMessage) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return nil
}

type MockWhatsAppSender struct {
	mu   sync.Mutex
	Sent []string // phone numbers

	SendFunc func(ctx context.Context, phone, text string) error
}

var _ adapter.WhatsAppSender = (*MockWhatsAppSender)(nil)

func (m *MockWhatsAppSender) Name() string { return "whatsapp" }

func (m *MockWhatsAppSender) Send(ctx context.Context, phone, text string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, phone, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, phone)
	return nil
}

type MockComposer struct {
	ComposeFunc func(ctx context.Context, planName, amount, currency, paymentURL string) (adapter.ReminderCopy, error)
}

var _ adapter.ReminderComposer = (*MockComposer)(nil)

func (m *MockComposer) Compose(ctx context.Context, planName, amount, currency, paymentURL string) (adapter.ReminderCopy, error) {
	if m.ComposeFunc != nil {
		return m.ComposeFunc(ctx, planName, amount, currency, paymentURL)
	}
	return adapter.ReminderCopy{
		Subject: "Complete your " + planName + " purchase",
		Body:    "Finish checkout here: " + paymentURL,
	}, nil
}

// ---- Mock FailureRecorder ----

type MockFailureRecorder struct {
	mu       sync.Mutex
	Recorded []string // categories
}

func (m *MockFailureRecorder) Record(ctx context.Context, category string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recorded = append(m.Recorded, category)
}

// =============================
// Repositories
// =============================

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.Plan

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error)
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.Plan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPlanRepo) ListPublished(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Plan
	for _, p := range r.data {
		if p.Published {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPlanRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// ---- Mock PromoCodeRepository ----

type MockPromoRepo struct {
	mu   sync.Mutex
	data map[string]*model.PromoCode // by id

	FindByCodeFunc     func(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error)
	IncrementUsageFunc func(ctx context.Context, tx repository.Tx, id string) (bool, error)
}

var _ repository.PromoCodeRepository = (*MockPromoRepo)(nil)

func NewMockPromoRepo() *MockPromoRepo {
	return &MockPromoRepo{data: map[string]*model.PromoCode{}}
}

func (r *MockPromoRepo) Save(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	cp.Code = model.NormalizeCode(cp.Code)
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPromoRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	if r.FindByCodeFunc != nil {
		return r.FindByCodeFunc(ctx, tx, code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	norm := model.NormalizeCode(code)
	for _, p := range r.data {
		if p.Code == norm {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPromoRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PromoCode
	for _, p := range r.data {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockPromoRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MockPromoRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if r.IncrementUsageFunc != nil {
		return r.IncrementUsageFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.MaxUses != nil && p.CurrentUses >= *p.MaxUses {
		return false, nil
	}
	p.CurrentUses++
	return true, nil
}

// ---- Mock AffiliateRepository ----

type MockAffiliateRepo struct {
	mu   sync.Mutex
	data map[string]*model.Affiliate

	FindActiveByCodeFunc func(ctx context.Context, tx repository.Tx, code string) (*model.Affiliate, error)
}

var _ repository.AffiliateRepository = (*MockAffiliateRepo)(nil)

func NewMockAffiliateRepo() *MockAffiliateRepo {
	return &MockAffiliateRepo{data: map[string]*model.Affiliate{}}
}

func (r *MockAffiliateRepo) Save(ctx context.Context, tx repository.Tx, a *model.Affiliate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := *a
	r.data[a.ID] = &cp
	return nil
}

func (r *MockAffiliateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.data[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockAffiliateRepo) FindActiveByCode(ctx context.Context, tx repository.Tx, code string) (*model.Affiliate, error) {
	if r.FindActiveByCodeFunc != nil {
		return r.FindActiveByCodeFunc(ctx, tx, code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.data {
		if a.Code == code && a.Active {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockAffiliateRepo) AddEarnings(ctx context.Context, tx repository.Tx, id string, commission decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.TotalReferrals++
	a.TotalEarnings = a.TotalEarnings.Add(commission)
	a.PendingEarnings = a.PendingEarnings.Add(commission)
	return nil
}

// ---- Mock ReferralRepository ----

type MockReferralRepo struct {
	mu   sync.Mutex
	byTx map[string]*model.Referral

	SaveFunc func(ctx context.Context, tx repository.Tx, ref *model.Referral) error
}

var _ repository.ReferralRepository = (*MockReferralRepo)(nil)

func NewMockReferralRepo() *MockReferralRepo {
	return &MockReferralRepo{byTx: map[string]*model.Referral{}}
}

func (r *MockReferralRepo) Save(ctx context.Context, tx repository.Tx, ref *model.Referral) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, ref)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTx[ref.TransactionID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *ref
	r.byTx[ref.TransactionID] = &cp
	return nil
}

func (r *MockReferralRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Referral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref, ok := r.byTx[transactionID]; ok {
		cp := *ref
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockReferralRepo) ListByAffiliate(ctx context.Context, tx repository.Tx, affiliateID string) ([]*model.Referral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Referral
	for _, ref := range r.byTx {
		if ref.AffiliateID == affiliateID {
			cp := *ref
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock TransactionRepository ----

type MockTransactionRepo struct {
	mu    sync.Mutex
	data  map[string]*model.Transaction
	byRef map[string]string // gateway ref -> id

	SaveFunc                   func(ctx context.Context, tx repository.Tx, t *model.Transaction) error
	FindByIDFunc               func(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error)
	FindByGatewayRefFunc       func(ctx context.Context, tx repository.Tx, ref string) (*model.Transaction, error)
	MarkCompletedIfPendingFunc func(ctx context.Context, tx repository.Tx, id, gatewayRef string, paidAt time.Time) (bool, error)
	MarkFailedIfPendingFunc    func(ctx context.Context, tx repository.Tx, id string) (bool, error)
	SetCardPaymentIntentFunc   func(ctx context.Context, tx repository.Tx, id, paymentIntent string) error
	RecordRefundFunc           func(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus, refundAmount decimal.Decimal, refundRef string) error
	ListPendingOlderThanFunc   func(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error)
	SumCompletedByPeriodFunc   func(ctx context.Context, tx repository.Tx, period string) (decimal.Decimal, error)
}

var _ repository.TransactionRepository = (*MockTransactionRepo)(nil)

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{data: map[string]*model.Transaction{}, byRef: map[string]string{}}
}

func (r *MockTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.data[t.ID] = &cp
	if t.GatewayRef != "" {
		r.byRef[t.GatewayRef] = t.ID
	}
	return nil
}

func (r *MockTransactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.data[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockTransactionRepo) FindByGatewayRef(ctx context.Context, tx repository.Tx, ref string) (*model.Transaction, error) {
	if r.FindByGatewayRefFunc != nil {
		return r.FindByGatewayRefFunc(ctx, tx, ref)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byRef[ref]; ok {
		cp := *r.data[id]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockTransactionRepo) MarkCompletedIfPending(ctx context.Context, tx repository.Tx, id, gatewayRef string, paidAt time.Time) (bool, error) {
	if r.MarkCompletedIfPendingFunc != nil {
		return r.MarkCompletedIfPendingFunc(ctx, tx, id, gatewayRef, paidAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Status = model.TransactionStatusCompleted
	if gatewayRef != "" {
		t.GatewayRef = gatewayRef
		r.byRef[gatewayRef] = id
	}
	pt := paidAt
	t.PaidAt = &pt
	t.UpdatedAt = now()
	return true, nil
}

func (r *MockTransactionRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if r.MarkFailedIfPendingFunc != nil {
		return r.MarkFailedIfPendingFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Status = model.TransactionStatusFailed
	t.UpdatedAt = now()
	return true, nil
}

func (r *MockTransactionRepo) SetCardPaymentIntent(ctx context.Context, tx repository.Tx, id, paymentIntent string) error {
	if r.SetCardPaymentIntentFunc != nil {
		return r.SetCardPaymentIntentFunc(ctx, tx, id, paymentIntent)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	if t.Gateway.Card != nil {
		card := *t.Gateway.Card
		card.PaymentIntent = paymentIntent
		t.Gateway.Card = &card
		t.UpdatedAt = now()
	}
	return nil
}

func (r *MockTransactionRepo) RecordRefund(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus, refundAmount decimal.Decimal, refundRef string) error {
	if r.RecordRefundFunc != nil {
		return r.RecordRefundFunc(ctx, tx, id, status, refundAmount, refundRef)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	if t.Status != model.TransactionStatusCompleted && t.Status != model.TransactionStatusPartiallyRefunded {
		return domain.ErrInvalidTransition
	}
	t.Status = status
	t.RefundAmount = refundAmount
	t.RefundRef = refundRef
	t.UpdatedAt = now()
	return nil
}

func (r *MockTransactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	if r.ListPendingOlderThanFunc != nil {
		return r.ListPendingOlderThanFunc(ctx, tx, olderThan, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Transaction
	for _, t := range r.data {
		if t.Status == model.TransactionStatusPending && t.CreatedAt.Before(olderThan) {
			cp := *t
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MockTransactionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.TransactionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[model.TransactionStatus]int{}
	for _, t := range r.data {
		counts[t.Status]++
	}
	return counts, nil
}

func (r *MockTransactionRepo) SumCompletedByPeriod(ctx context.Context, tx repository.Tx, period string) (decimal.Decimal, error) {
	if r.SumCompletedByPeriodFunc != nil {
		return r.SumCompletedByPeriodFunc(ctx, tx, period)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, t := range r.data {
		switch t.Status {
		case model.TransactionStatusCompleted, model.TransactionStatusRefunded, model.TransactionStatusPartiallyRefunded:
			sum = sum.Add(t.FinalAmount)
		}
	}
	return sum, nil
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription

	SaveFunc                     func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	FindActiveByEmailAndPlanFunc func(ctx context.Context, tx repository.Tx, email, planID string) (*model.Subscription, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.TransactionID == transactionID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindActiveByEmailAndPlan(ctx context.Context, tx repository.Tx, email, planID string) (*model.Subscription, error) {
	if r.FindActiveByEmailAndPlanFunc != nil {
		return r.FindActiveByEmailAndPlanFunc(ctx, tx, email, planID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.Email == email && s.PlanID == planID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) ListByEmail(ctx context.Context, tx repository.Tx, email string) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.Email == email {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, nowAt time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive && s.EndDate.Before(nowAt) {
			s.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

func (r *MockSubscriptionRepo) CountActiveByPlan(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := map[string]int{}
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive {
			res[s.PlanID]++
		}
	}
	return res, nil
}

// ---- Mock ReminderRepository ----

type MockReminderRepo struct {
	mu   sync.Mutex
	byTx map[string]*model.AbandonedPaymentReminder
	byID map[string]string // id -> transaction id

	UpsertByTransactionFunc func(ctx context.Context, tx repository.Tx, r *model.AbandonedPaymentReminder) (bool, error)
	MarkSentFunc            func(ctx context.Context, tx repository.Tx, id string, at time.Time) error
}

var _ repository.ReminderRepository = (*MockReminderRepo)(nil)

func NewMockReminderRepo() *MockReminderRepo {
	return &MockReminderRepo{byTx: map[string]*model.AbandonedPaymentReminder{}, byID: map[string]string{}}
}

func (r *MockReminderRepo) UpsertByTransaction(ctx context.Context, tx repository.Tx, rec *model.AbandonedPaymentReminder) (bool, error) {
	if r.UpsertByTransactionFunc != nil {
		return r.UpsertByTransactionFunc(ctx, tx, rec)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTx[rec.TransactionID]; ok {
		return false, nil
	}
	cp := *rec
	r.byTx[rec.TransactionID] = &cp
	r.byID[rec.ID] = rec.TransactionID
	return true, nil
}

func (r *MockReminderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AbandonedPaymentReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if txID, ok := r.byID[id]; ok {
		cp := *r.byTx[txID]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockReminderRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.AbandonedPaymentReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byTx[transactionID]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockReminderRepo) ListAll(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.AbandonedPaymentReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AbandonedPaymentReminder
	for _, rec := range r.byTx {
		cp := *rec
		out = append(out, &cp)
	}
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockReminderRepo) MarkSent(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	if r.MarkSentFunc != nil {
		return r.MarkSentFunc(ctx, tx, id, at)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	txID, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec := r.byTx[txID]
	rec.ReminderCount++
	t := at
	rec.LastRemindedAt = &t
	rec.UpdatedAt = now()
	return nil
}

// ---- Mock NotificationLogRepository ----

type MockNotificationLogRepo struct {
	mu      sync.Mutex
	Entries []*model.NotificationLog
}

var _ repository.NotificationLogRepository = (*MockNotificationLogRepo)(nil)

func NewMockNotificationLogRepo() *MockNotificationLogRepo {
	return &MockNotificationLogRepo{}
}

func (r *MockNotificationLogRepo) Save(ctx context.Context, tx repository.Tx, l *model.NotificationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.Entries = append(r.Entries, &cp)
	return nil
}

func (r *MockNotificationLogRepo) Exists(ctx context.Context, tx repository.Tx, transactionID string, kind model.NotificationKind, channel model.NotificationChannel) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Entries {
		if e.TransactionID == transactionID && e.Kind == kind && e.Channel == channel && e.OK {
			return true, nil
		}
	}
	return false, nil
}

// =============================
// Infra helpers for tests
// =============================

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithTx runs the function immediately without a real transaction. Assign
// WithTxFunc for tests that need to observe or fail the transactional path.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
