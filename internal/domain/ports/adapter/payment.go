package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CanonicalStatus is the three-valued outcome every provider status token is
// mapped onto. Unrecognized tokens always map to pending.
type CanonicalStatus string

const (
	CanonicalPending   CanonicalStatus = "pending"
	CanonicalCompleted CanonicalStatus = "completed"
	CanonicalFailed    CanonicalStatus = "failed"
)

// CryptoGateway is the port for the crypto checkout redirect path.
type CryptoGateway interface {
	Name() string
	// BuildPaymentURL assembles the hosted checkout redirect URL for a
	// transaction. The provisioned receiving address is embedded verbatim;
	// it is already percent-encoded by the provisioning step and MUST NOT be
	// re-encoded.
	BuildPaymentURL(transactionID string, amount decimal.Decimal, currency, email string) (string, error)
	// VerifyCallback checks the webhook hash for the given parameters.
	// Returns domain.ErrInvalidSignature on mismatch; a nil error with a
	// configured secret means the payload may be trusted.
	VerifyCallback(invoice, status, amount, currency, hash string) error
	// MapStatus translates the provider status vocabulary via an allow-list.
	MapStatus(providerStatus string) CanonicalStatus
}

// CheckoutSession is the handle returned by the card processor's hosted flow.
type CheckoutSession struct {
	ID  string
	URL string
}

// RefundResult captures the processor's answer to a refund request.
type RefundResult struct {
	ID        string
	Status    string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// CardEventKind classifies card-processor webhook events the listener acts on.
type CardEventKind string

const (
	CardEventSessionCompleted CardEventKind = "checkout.session.completed"
	CardEventSessionExpired   CardEventKind = "checkout.session.expired"
	CardEventIgnored          CardEventKind = "ignored"
)

// CardEvent is the parsed, signature-verified webhook payload.
// ClientReferenceID carries our transaction id back from the session; it is
// the lookup of last resort when the session id is not the one we stored
// (reminder links open a fresh session for the same transaction).
type CardEvent struct {
	Kind              CardEventKind
	SessionID         string
	PaymentIntent     string
	ClientReferenceID string
}

// CardGateway is the port for the hosted card checkout processor.
type CardGateway interface {
	Name() string
	// CreateCheckoutSession opens a hosted session with the plan as line item.
	// Metadata round-trips the plan id, promo code and affiliate code for
	// retrieval at confirmation time.
	CreateCheckoutSession(ctx context.Context, transactionID, planName string, amount decimal.Decimal, currency, email string, metadata map[string]string) (*CheckoutSession, error)
	// ParseWebhook verifies the signature header against the endpoint secret
	// (fail closed) and decodes the event.
	ParseWebhook(payload []byte, signatureHeader string) (*CardEvent, error)
	// Refund sends a full or partial refund for the session's payment.
	Refund(ctx context.Context, paymentIntent string, amount decimal.Decimal, reason string) (*RefundResult, error)
}
