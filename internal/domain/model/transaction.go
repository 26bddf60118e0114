package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending           TransactionStatus = "pending"            // created at checkout; awaiting gateway outcome
	TransactionStatusCompleted         TransactionStatus = "completed"          // gateway confirmed payment
	TransactionStatusFailed            TransactionStatus = "failed"             // gateway reported failure/expiry
	TransactionStatusRefunded          TransactionStatus = "refunded"           // fully refunded via processor
	TransactionStatusPartiallyRefunded TransactionStatus = "partially_refunded" // partial refund applied on top of completed
)

type PaymentMethod string

const (
	PaymentMethodCrypto PaymentMethod = "crypto"
	PaymentMethodCard   PaymentMethod = "card"
)

// CryptoDetails holds gateway data for the crypto redirect path.
type CryptoDetails struct {
	WalletAddress string `json:"wallet_address"`
	PaymentURL    string `json:"payment_url"`
	ReportedTxID  string `json:"reported_tx_id,omitempty"`
}

// CardDetails holds gateway data for the hosted card checkout path.
type CardDetails struct {
	SessionID     string `json:"session_id"`
	PaymentIntent string `json:"payment_intent,omitempty"`
	ReceiptURL    string `json:"receipt_url,omitempty"`
}

// GatewayDetails is a tagged union keyed by the transaction's payment method.
// Exactly one branch is set; stored as JSONB.
type GatewayDetails struct {
	Crypto *CryptoDetails `json:"crypto,omitempty"`
	Card   *CardDetails   `json:"card,omitempty"`
}

// Transaction is the ledger record for one payment attempt. Rows are never
// deleted; terminal rows are immutable except for the refund fields layered
// on top of completed.
type Transaction struct {
	ID             string // ULID, caller-visible
	Email          string
	Contact        string // buyer phone, optional
	PlanID         string
	OriginalAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	Currency       string
	Method         PaymentMethod
	Status         TransactionStatus
	GatewayRef     string // gateway-assigned reference (invoice id / session id)
	Gateway        GatewayDetails
	PromoCode      string // snapshot of the applied code, empty if none
	AffiliateID    *string
	InvoiceNumber  string
	RefundAmount   decimal.Decimal
	RefundRef      string
	PaidAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanTransition reports whether moving from the current status to next is a
// legal ledger transition.
func (t *Transaction) CanTransition(next TransactionStatus) bool {
	switch t.Status {
	case TransactionStatusPending:
		return next == TransactionStatusCompleted || next == TransactionStatusFailed
	case TransactionStatusCompleted:
		return next == TransactionStatusRefunded || next == TransactionStatusPartiallyRefunded
	case TransactionStatusPartiallyRefunded:
		return next == TransactionStatusRefunded
	default:
		return false
	}
}

// Refundable reports whether an admin refund may be issued against this row.
func (t *Transaction) Refundable() bool {
	if t.Method != PaymentMethodCard {
		return false
	}
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusPartiallyRefunded
}

// RefundableRemainder is the amount not yet refunded.
func (t *Transaction) RefundableRemainder() decimal.Decimal {
	rem := t.FinalAmount.Sub(t.RefundAmount)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}
