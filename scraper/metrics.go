package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Source labels for fetch metrics.
const (
	sourceFile = "file"
	sourceWeb  = "web"
)

// Metrics bundles Prometheus collectors for page fetches.
type Metrics struct {
	Registry      *prometheus.Registry
	FetchesTotal  *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	RetriesTotal  prometheus.Counter
	ErrorsTotal   *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockreport_fetches_total",
			Help: "Page fetches by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockreport_fetch_duration_seconds",
			Help:    "Latency of individual page fetch attempts.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockreport_retries_total",
			Help: "Total number of fetch retries.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockreport_fetch_errors_total",
			Help: "Failed fetch attempts by error type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(fetches, duration, retries, errorsTotal)

	return &Metrics{
		Registry:      registry,
		FetchesTotal:  fetches,
		FetchDuration: duration,
		RetriesTotal:  retries,
		ErrorsTotal:   errorsTotal,
	}
}

// IncFetch counts one completed fetch.
func (m *Metrics) IncFetch(source, outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveDuration records a fetch attempt duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
