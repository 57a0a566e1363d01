// Package metrics provides Prometheus instrumentation for the report pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeFetchError      = "fetch_error"
	OutcomeInvalidResponse = "invalid_response"
	OutcomeMalformed       = "malformed"
)

// Metrics provides observability for the report pipeline.
type Metrics struct {
	// Upstream fetches by outcome
	FetchTotal *prometheus.CounterVec

	// Upstream fetch latency
	FetchDuration prometheus.Histogram

	// Cache lookups by result (hit, miss)
	CacheLookups *prometheus.CounterVec

	// Body rows in the most recent report
	ReportRows prometheus.Gauge

	// Unix time of the most recent successful refresh
	LastRefresh prometheus.Gauge
}

// New registers the pipeline metrics with reg. A nil reg uses the default
// Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		FetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "homestay_upstream_fetch_total",
			Help: "Upstream fetches by outcome",
		}, []string{"outcome"}),

		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "homestay_upstream_fetch_duration_seconds",
			Help:    "Duration of upstream fetches including validation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "homestay_cache_lookups_total",
			Help: "Snapshot cache lookups by result",
		}, []string{"result"}),

		ReportRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "homestay_report_rows",
			Help: "Body rows in the most recent report",
		}),

		LastRefresh: f.NewGauge(prometheus.GaugeOpts{
			Name: "homestay_report_last_refresh_timestamp_seconds",
			Help: "Unix time of the most recent successful report refresh",
		}),
	}
}

// ObserveFetch records one upstream fetch.
func (m *Metrics) ObserveFetch(outcome string, d time.Duration) {
	if m != nil {
		m.FetchTotal.WithLabelValues(outcome).Inc()
		m.FetchDuration.Observe(d.Seconds())
	}
}

// CacheHit records a cache hit.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheLookups.WithLabelValues("hit").Inc()
	}
}

// CacheMiss records a cache miss.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// ReportRefreshed records the size and time of a fresh report.
func (m *Metrics) ReportRefreshed(rows int, at time.Time) {
	if m != nil {
		m.ReportRows.Set(float64(rows))
		m.LastRefresh.Set(float64(at.Unix()))
	}
}
