package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_processed_total",
		Help: "Queue tasks processed, labeled by task type and status.",
	},
	[]string{"task", "status"}, // 'completed', 'failed'
)

func IncJob(task, status string) {
	jobsProcessedTotal.WithLabelValues(norm(task), norm(status)).Inc()
}
