package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		remindersCreatedTotal,
		remindersSentTotal,
		notificationsTotal,
	)
}

var (
	remindersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "abandoned_reminders_created_total",
			Help: "Abandoned-payment reminders created by the detection sweep.",
		},
	)

	remindersSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "abandoned_reminders_sent_total",
			Help: "Abandoned-payment reminder notifications dispatched.",
		},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Outbound notifications by channel and result.",
		},
		[]string{"channel", "result"},
	)
)

func IncRemindersCreated(count int) { remindersCreatedTotal.Add(float64(count)) }

func IncReminderSent() { remindersSentTotal.Inc() }

func IncNotification(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	notificationsTotal.WithLabelValues(norm(channel), result).Inc()
}
