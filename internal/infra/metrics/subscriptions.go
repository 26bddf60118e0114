package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsActivatedTotal,
		subscriptionsExpiredTotal,
	)
}

var (
	subscriptionsActivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Subscriptions created or extended by payment activation.",
		},
	)

	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions transitioned to expired by the expiry sweep.",
		},
	)
)

func IncSubscriptionsActivated() { subscriptionsActivatedTotal.Inc() }

func IncSubscriptionsExpired(count int) { subscriptionsExpiredTotal.Add(float64(count)) }
