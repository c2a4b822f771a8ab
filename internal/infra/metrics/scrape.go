package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		siteFetchLatencyMs,
		productChecksTotal,
		scanRunsTotal,
	)
}

var (
	siteFetchLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "site_fetch_latency_ms",
			Help:    "Shop page fetch latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
	)

	productChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_checks_total",
			Help: "Product availability checks by resulting status.",
		},
		[]string{"status"}, // e.g. 'in_stock', 'out_of_stock', 'blocked'
	)

	scanRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_runs_total",
			Help: "Completed sitemap out-of-stock scans.",
		},
	)
)

func ObserveFetchLatency(d time.Duration) {
	siteFetchLatencyMs.Observe(float64(d.Milliseconds()))
}

func IncProductCheck(status string) {
	productChecksTotal.WithLabelValues(norm(status)).Inc()
}

func IncScanRun() {
	scanRunsTotal.Inc()
}
