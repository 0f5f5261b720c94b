package watch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the watcher.
type Metrics struct {
	Registry      *prometheus.Registry
	ChecksTotal   *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	AlertsTotal   prometheus.Counter
	RetriesTotal  prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	checks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_checks_total",
			Help: "Total product checks by outcome status.",
		},
		[]string{"status"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricewatch_fetch_duration_seconds",
			Help:    "Page fetch latency per product check.",
			Buckets: prometheus.DefBuckets,
		},
	)
	alerts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_alerts_total",
			Help: "Total price alerts emitted.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_retries_total",
			Help: "Total fetch retry attempts.",
		},
	)

	registry.MustRegister(checks, fetchDuration, alerts, retries)

	return &Metrics{
		Registry:      registry,
		ChecksTotal:   checks,
		FetchDuration: fetchDuration,
		AlertsTotal:   alerts,
		RetriesTotal:  retries,
	}
}

// IncCheck increments the checks counter for a status label.
func (m *Metrics) IncCheck(status string) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(status).Inc()
}

// ObserveFetch records one fetch duration.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncAlert increments the alerts counter.
func (m *Metrics) IncAlert() {
	if m == nil {
		return
	}
	m.AlertsTotal.Inc()
}

// AddRetries adds to the retries counter.
func (m *Metrics) AddRetries(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RetriesTotal.Add(float64(n))
}
