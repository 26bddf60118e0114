package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain/ports/adapter"
)

var (
	_ adapter.CryptoGateway = (*NoopCryptoGateway)(nil)
	_ adapter.CardGateway   = (*NoopCardGateway)(nil)
)

// NoopCryptoGateway is a simple in-memory crypto gateway to use in tests.
type NoopCryptoGateway struct{}

func NewNoopCryptoGateway() *NoopCryptoGateway { return &NoopCryptoGateway{} }

func (g *NoopCryptoGateway) Name() string { return "noop" }

func (g *NoopCryptoGateway) BuildPaymentURL(transactionID string, amount decimal.Decimal, currency, email string) (string, error) {
	return "https://example.test/pay/" + transactionID, nil
}

func (g *NoopCryptoGateway) VerifyCallback(invoice, status, amount, currency, hash string) error {
	return nil
}

func (g *NoopCryptoGateway) MapStatus(providerStatus string) adapter.CanonicalStatus {
	switch providerStatus {
	case "paid":
		return adapter.CanonicalCompleted
	case "failed":
		return adapter.CanonicalFailed
	default:
		return adapter.CanonicalPending
	}
}

// NoopCardGateway is a simple in-memory card gateway to use in tests.
type NoopCardGateway struct {
	mu  sync.Mutex
	seq int64
}

func NewNoopCardGateway() *NoopCardGateway { return &NoopCardGateway{} }

func (g *NoopCardGateway) Name() string { return "noop" }

func (g *NoopCardGateway) CreateCheckoutSession(ctx context.Context, transactionID, planName string, amount decimal.Decimal, currency, email string, metadata map[string]string) (*adapter.CheckoutSession, error) {
	g.mu.Lock()
	g.seq++
	id := fmt.Sprintf("cs_noop_%d", g.seq)
	g.mu.Unlock()
	return &adapter.CheckoutSession{ID: id, URL: "https://example.test/checkout/" + id}, nil
}

func (g *NoopCardGateway) ParseWebhook(payload []byte, signatureHeader string) (*adapter.CardEvent, error) {
	return &adapter.CardEvent{Kind: adapter.CardEventIgnored}, nil
}

func (g *NoopCardGateway) Refund(ctx context.Context, paymentIntent string, amount decimal.Decimal, reason string) (*adapter.RefundResult, error) {
	return &adapter.RefundResult{
		ID:        "re_noop_" + paymentIntent,
		Status:    "succeeded",
		Amount:    amount,
		CreatedAt: time.Now(),
	}, nil
}
