package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		transactionsTotal,
		paymentsRevenueTotal,
		refundsTotal,
	)
}

var (
	transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_total",
			Help: "Ledger transitions by resulting status (pending/completed/failed/refunded/partially_refunded).",
		},
		[]string{"status", "method"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of completed payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Refunds issued, labeled by kind (full/partial).",
		},
		[]string{"kind"},
	)
)

func IncTransaction(status, method string) {
	transactionsTotal.WithLabelValues(norm(status), norm(method)).Inc()
}

func AddPaymentRevenue(currency string, amount float64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount)
}

func IncRefund(kind string) {
	refundsTotal.WithLabelValues(norm(kind)).Inc()
}
