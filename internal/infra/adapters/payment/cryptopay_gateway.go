package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/ports/adapter"
)

var _ adapter.CryptoGateway = (*CryptoPayGateway)(nil)

// CryptoPayGateway implements adapter.CryptoGateway against the hosted
// crypto checkout provider. The provider has no server-side session API:
// the redirect URL is assembled locally and the outcome arrives on a
// hash-signed callback.
type CryptoPayGateway struct {
	baseURL       string
	walletAddress string // pre-encoded upstream; embedded verbatim
	secret        string
}

func NewCryptoPayGateway(baseURL, walletAddress, secret string) (*CryptoPayGateway, error) {
	if baseURL == "" {
		return nil, errors.New("cryptopay base url empty")
	}
	if walletAddress == "" {
		return nil, errors.New("cryptopay wallet address empty")
	}
	return &CryptoPayGateway{
		baseURL:       strings.TrimRight(baseURL, "/"),
		walletAddress: walletAddress,
		secret:        secret,
	}, nil
}

func (g *CryptoPayGateway) Name() string { return "cryptopay" }

// BuildPaymentURL assembles the redirect URL by hand. The wallet address is
// already percent-encoded by the provisioning step; passing it through
// url.Values would double-encode it and break the hosted page, so every
// parameter except the address goes through QueryEscape and the address is
// concatenated as-is.
func (g *CryptoPayGateway) BuildPaymentURL(transactionID string, amount decimal.Decimal, currency, email string) (string, error) {
	if transactionID == "" {
		return "", domain.ErrInvalidArgument
	}
	var b strings.Builder
	b.WriteString(g.baseURL)
	b.WriteString("/checkout?address=")
	b.WriteString(g.walletAddress)
	b.WriteString("&invoice=")
	b.WriteString(url.QueryEscape(transactionID))
	b.WriteString("&amount=")
	b.WriteString(url.QueryEscape(amount.StringFixed(2)))
	b.WriteString("&currency=")
	b.WriteString(url.QueryEscape(strings.ToUpper(currency)))
	b.WriteString("&email=")
	b.WriteString(url.QueryEscape(email))
	return b.String(), nil
}

// VerifyCallback recomputes the callback hash and compares in constant time.
// A missing secret fails closed: callbacks are rejected rather than trusted.
func (g *CryptoPayGateway) VerifyCallback(invoice, status, amount, currency, hash string) error {
	if g.secret == "" {
		return domain.ErrGatewayNotConfigured
	}
	if hash == "" {
		return domain.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(g.secret))
	fmt.Fprintf(mac, "%s|%s|%s|%s", invoice, status, amount, currency)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(hash))) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// MapStatus is an allow-list: tokens outside it stay pending so an unknown
// provider vocabulary can never complete or fail a payment.
func (g *CryptoPayGateway) MapStatus(providerStatus string) adapter.CanonicalStatus {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "paid", "confirmed", "complete", "completed":
		return adapter.CanonicalCompleted
	case "failed", "expired", "cancelled", "canceled":
		return adapter.CanonicalFailed
	default:
		return adapter.CanonicalPending
	}
}
