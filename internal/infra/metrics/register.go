package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Each file in this package enqueues its collectors from init(); nothing
// touches the default registry until main calls MustRegister.
var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister installs every enqueued collector into the default Prometheus
// registry. Safe to call more than once; only the first call registers.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(pending...)
	})
}
