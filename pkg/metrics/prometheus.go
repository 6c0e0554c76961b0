package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus. Build one
// per process; the collectors register on the default registry.
type Recorder struct {
	providerCalls *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	articles      *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	usage         *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		providerCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foliofeed_provider_calls_total",
				Help: "Provider call attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),
		fallbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foliofeed_fallback_attempts_total",
				Help: "Provider attempts made by the fallback chain",
			},
			[]string{"capability", "provider", "outcome"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foliofeed_cache_lookups_total",
				Help: "Cache lookups by outcome",
			},
			[]string{"cache", "outcome"},
		),
		articles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foliofeed_articles_total",
				Help: "Articles seen per ingestion stage",
			},
			[]string{"stage"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foliofeed_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		usage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "foliofeed_provider_window_requests",
				Help: "Requests counted in the current provider usage window",
			},
			[]string{"provider", "kind"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "foliofeed_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordProviderCall(provider, outcome string) {
	r.providerCalls.WithLabelValues(provider, outcome).Inc()
}

func (r *Recorder) RecordFallback(capability, provider, outcome string) {
	r.fallbacks.WithLabelValues(capability, provider, outcome).Inc()
}

func (r *Recorder) RecordCacheLookup(cache, outcome string) {
	r.cacheLookups.WithLabelValues(cache, outcome).Inc()
}

// RecordArticles adds n to the stage counter (fetched, matched, duplicate, stored).
func (r *Recorder) RecordArticles(stage string, n int) {
	if n > 0 {
		r.articles.WithLabelValues(stage).Add(float64(n))
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordUsage mirrors a provider usage window into gauges.
func (r *Recorder) RecordUsage(provider string, requests, errors, throttled int64) {
	r.usage.WithLabelValues(provider, "requests").Set(float64(requests))
	r.usage.WithLabelValues(provider, "errors").Set(float64(errors))
	r.usage.WithLabelValues(provider, "throttled").Set(float64(throttled))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop satisfies the recorder interfaces and records nothing.
type Nop struct{}

func (Nop) RecordProviderCall(string, string) {}
func (Nop) RecordFallback(string, string, string) {}
func (Nop) RecordCacheLookup(string, string) {}
func (Nop) RecordArticles(string, int) {}
func (Nop) RecordError(string) {}
func (Nop) RecordUsage(string, int64, int64, int64) {}
func (Nop) RecordLatency(string, float64) {}
