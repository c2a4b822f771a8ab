package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(watchChecksProcessedTotal, watchNotificationsSentTotal) }

var (
	watchChecksProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_checks_processed_total",
			Help: "Total number of watch checks processed by the background job, labeled by outcome.",
		},
		[]string{"outcome"}, // 'notified', 'silent', 'skipped', 'limited', 'failed'
	)

	watchNotificationsSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_notifications_sent_total",
			Help: "Total number of availability notifications delivered.",
		},
	)
)

func IncWatchCheck(outcome string) {
	watchChecksProcessedTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncNotificationSent() {
	watchNotificationsSentTotal.Inc()
}
