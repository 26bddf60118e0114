package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AbandonedPaymentReminder is recovery bookkeeping for a stale pending
// transaction. At most one exists per transaction (upsert semantics);
// detection creates it, sending increments the counter.
type AbandonedPaymentReminder struct {
	ID             string // UUID
	TransactionID  string
	Email          string
	Contact        string
	PlanID         string
	PlanName       string
	Amount         decimal.Decimal
	Currency       string
	PaymentURL     string // regenerated at detection time
	ReminderCount  int
	LastRemindedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
