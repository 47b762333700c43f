package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTruncation(200, 180)
	m.ObserveTruncation(300, 180)
	m.SegmentExtracted("technical")
	m.SegmentDropped("below_min")
	m.RetrievalCompleted("vector", 0.01)
	m.RetrievalCompleted("lexical", 0.02)
	m.RetrievalCompleted("vector", 0.03)
	m.RetrievalFailed("provider", 0.5)
	m.SetBreakerState(BreakerOpen)
	m.SegmentsReembedded(4, 384)
	m.SegmentsReembedded(2, 384)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.truncations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.segments.WithLabelValues("technical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.segmentsDropped.WithLabelValues("below_min")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.retrievals.WithLabelValues("vector")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retrievals.WithLabelValues("lexical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retrievalErrors.WithLabelValues("provider")))
	assert.Equal(t, float64(BreakerOpen), testutil.ToFloat64(m.breakerState))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.reembedded))
	assert.Equal(t, 384.0, testutil.ToFloat64(m.dimensions))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "vitae_segment_truncations_total")
	assert.Contains(t, names, "vitae_retrieval_duration_seconds")
	assert.Contains(t, names, "vitae_store_breaker_state")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTruncation(10, 5)
		m.SegmentExtracted("overview")
		m.SegmentDropped("duplicate")
		m.RetrievalCompleted("vector", 1)
		m.RetrievalFailed("store", 1)
		m.SetBreakerState(BreakerClosed)
		m.SegmentsReembedded(1, 3)
	})
}

func TestNew_WithoutRegistry(t *testing.T) {
	m := New(nil)
	m.SegmentExtracted("overview")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.segments.WithLabelValues("overview")))
}
