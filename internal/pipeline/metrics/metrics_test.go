package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/agentstation/homestay/internal/pipeline/metrics"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveFetch(metrics.OutcomeSuccess, 200*time.Millisecond)
	m.ObserveFetch(metrics.OutcomeFetchError, time.Second)
	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.ReportRefreshed(12, time.Unix(1700000000, 0))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.ReportRows))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastRefresh))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveFetch(metrics.OutcomeSuccess, time.Second)
		m.CacheHit()
		m.CacheMiss()
		m.ReportRefreshed(1, time.Now())
	})
}
