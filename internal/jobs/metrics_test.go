package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	require.NoError(t, metrics.Track("shipping_flow_refresh").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, metrics.Track("shipping_flow_refresh").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("shipping_flow_refresh", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("shipping_flow_refresh", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("shipping_flow_refresh")))
}

func TestAddUnbalanced(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.AddUnbalanced(7, 2)
	metrics.AddUnbalanced(7, 0)
	metrics.AddUnbalanced(0, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.unbalanced.WithLabelValues("7")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.unbalanced.WithLabelValues("0")))
}

func TestNilMetricsTracker(t *testing.T) {
	var metrics *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, metrics.Track("job").End(boom), boom)
	metrics.AddUnbalanced(1, 1)
}
