package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhooksTotal,
		webhookUnknownStatusTotal,
	)
}

var (
	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_total",
			Help: "Gateway webhook deliveries by provider and result (accepted/rejected/invalid_signature).",
		},
		[]string{"provider", "result"},
	)

	webhookUnknownStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_unknown_status_total",
			Help: "Webhook deliveries carrying a status token outside the allow-list.",
		},
		[]string{"provider"},
	)
)

func IncWebhook(provider, result string) {
	webhooksTotal.WithLabelValues(norm(provider), norm(result)).Inc()
}

func IncWebhookUnknownStatus(provider string) {
	webhookUnknownStatusTotal.WithLabelValues(norm(provider)).Inc()
}
