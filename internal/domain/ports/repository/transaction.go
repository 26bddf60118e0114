package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain/model"
)

// TransactionRepository is the port for the payment ledger.
type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Transaction, error)
	FindByGatewayRef(ctx context.Context, tx Tx, ref string) (*model.Transaction, error)

	// MarkCompletedIfPending flips status to completed only when the row is
	// still pending, returning whether this call performed the transition.
	// This is the sole serialization point for the webhook/poll race.
	MarkCompletedIfPending(ctx context.Context, tx Tx, id string, gatewayRef string, paidAt time.Time) (bool, error)
	// MarkFailedIfPending is the failure-side counterpart.
	MarkFailedIfPending(ctx context.Context, tx Tx, id string) (bool, error)

	// SetCardPaymentIntent records the processor's payment intent on the
	// card branch of the gateway payload. It deliberately never touches
	// status: a full-row write here could resurrect a stale snapshot over a
	// concurrent completion.
	SetCardPaymentIntent(ctx context.Context, tx Tx, id string, paymentIntent string) error

	// RecordRefund layers refund bookkeeping on top of a completed row.
	RecordRefund(ctx context.Context, tx Tx, id string, status model.TransactionStatus, refundAmount decimal.Decimal, refundRef string) error

	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Transaction, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.TransactionStatus]int, error)
	SumCompletedByPeriod(ctx context.Context, tx Tx, period string) (decimal.Decimal, error)
}
