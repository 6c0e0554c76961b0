package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "foliofeed",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of portfolio API endpoints",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foliofeed",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by portfolio API endpoint",
		},
		[]string{"endpoint", "kind"},
	)

	APIPartialItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foliofeed",
			Subsystem: "api",
			Name:      "partial_items_total",
			Help:      "Batch items returned with a per-item error",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, APIPartialItems)
	})
}

// ObserveSince records the latency of endpoint since start.
func ObserveSince(endpoint string, start time.Time) {
	APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
