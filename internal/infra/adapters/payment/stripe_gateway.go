package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/ports/adapter"
)

var _ adapter.CardGateway = (*StripeGateway)(nil)

const stripeAPIBase = "https://api.stripe.com/v1"

// signatureTolerance bounds how old a webhook timestamp may be before the
// event is rejected as a possible replay.
const signatureTolerance = 5 * time.Minute

// StripeGateway implements adapter.CardGateway over Stripe's REST API
// (form-encoded requests, hosted Checkout sessions, signed webhooks).
type StripeGateway struct {
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
	apiBase       string
	client        *http.Client
	now           func() time.Time
}

func NewStripeGateway(secretKey, webhookSecret, successURL, cancelURL string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key empty")
	}
	if _, err := url.Parse(successURL); err != nil {
		return nil, fmt.Errorf("invalid success url: %w", err)
	}
	return &StripeGateway{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
		apiBase:       stripeAPIBase,
		client:        &http.Client{Timeout: 15 * time.Second},
		now:           time.Now,
	}, nil
}

func (g *StripeGateway) Name() string { return "stripe" }

// CreateCheckoutSession opens a hosted Checkout session with the plan as a
// single line item. Amounts are converted to the currency's minor unit.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, transactionID, planName string, amount decimal.Decimal, currency, email string, metadata map[string]string) (*adapter.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", transactionID)
	form.Set("customer_email", email)
	form.Set("success_url", g.successURL)
	form.Set("cancel_url", g.cancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(currency))
	form.Set("line_items[0][price_data][product_data][name]", planName)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amount.Shift(2).IntPart(), 10))
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := g.call(ctx, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	if out.ID == "" || out.URL == "" {
		return nil, domain.ErrUpstream
	}
	return &adapter.CheckoutSession{ID: out.ID, URL: out.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header (t=...,v1=... HMAC over
// "<t>.<payload>") before decoding. Verification fails closed: no secret, no
// header, stale timestamp or bad MAC all reject the event.
func (g *StripeGateway) ParseWebhook(payload []byte, signatureHeader string) (*adapter.CardEvent, error) {
	if g.webhookSecret == "" {
		return nil, domain.ErrGatewayNotConfigured
	}
	ts, sigs, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}
	at := time.Unix(ts, 0)
	if d := g.now().Sub(at); d > signatureTolerance || d < -signatureTolerance {
		return nil, domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	ok := false
	for _, s := range sigs {
		if hmac.Equal([]byte(expected), []byte(s)) {
			ok = true
			break
		}
	}
	if !ok {
		return nil, domain.ErrInvalidSignature
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID                string `json:"id"`
				PaymentIntent     string `json:"payment_intent"`
				ClientReferenceID string `json:"client_reference_id"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidArgument
	}

	switch event.Type {
	case "checkout.session.completed":
		return &adapter.CardEvent{
			Kind:              adapter.CardEventSessionCompleted,
			SessionID:         event.Data.Object.ID,
			PaymentIntent:     event.Data.Object.PaymentIntent,
			ClientReferenceID: event.Data.Object.ClientReferenceID,
		}, nil
	case "checkout.session.expired":
		return &adapter.CardEvent{
			Kind:              adapter.CardEventSessionExpired,
			SessionID:         event.Data.Object.ID,
			ClientReferenceID: event.Data.Object.ClientReferenceID,
		}, nil
	default:
		return &adapter.CardEvent{Kind: adapter.CardEventIgnored}, nil
	}
}

// Refund issues a partial or full refund against the payment intent.
func (g *StripeGateway) Refund(ctx context.Context, paymentIntent string, amount decimal.Decimal, reason string) (*adapter.RefundResult, error) {
	if paymentIntent == "" {
		return nil, domain.ErrInvalidArgument
	}
	form := url.Values{}
	form.Set("payment_intent", paymentIntent)
	form.Set("amount", strconv.FormatInt(amount.Shift(2).IntPart(), 10))
	if reason != "" {
		form.Set("metadata[reason]", reason)
	}

	var out struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Amount  int64  `json:"amount"`
		Created int64  `json:"created"`
	}
	if err := g.call(ctx, "/refunds", form, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, domain.ErrUpstream
	}
	return &adapter.RefundResult{
		ID:        out.ID,
		Status:    out.Status,
		Amount:    decimal.NewFromInt(out.Amount).Shift(-2),
		CreatedAt: time.Unix(out.Created, 0),
	}, nil
}

func (g *StripeGateway) call(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiBase+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(g.secretKey, "")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error.Message != "" {
			return fmt.Errorf("stripe %s: %s: %w", path, apiErr.Error.Message, domain.ErrUpstream)
		}
		return fmt.Errorf("stripe %s: http %d: %w", path, resp.StatusCode, domain.ErrUpstream)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, domain.ErrInvalidSignature
	}
	var ts int64
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			v, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, domain.ErrInvalidSignature
			}
			ts = v
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return 0, nil, domain.ErrInvalidSignature
	}
	return ts, sigs, nil
}
