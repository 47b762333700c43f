// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package metrics exposes Prometheus collectors for segment extraction, retrieval
// and reembedding.
//
// A nil *Metrics is valid and records nothing, so components take one as an
// optional collaborator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vitae"

// Breaker states reported by the store breaker gauge.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// Metrics groups the collectors of one process.
type Metrics struct {
	truncations      prometheus.Counter
	truncatedTokens  prometheus.Histogram
	segments         *prometheus.CounterVec
	segmentsDropped  *prometheus.CounterVec
	retrievals       *prometheus.CounterVec
	retrievalErrors  *prometheus.CounterVec
	retrievalLatency prometheus.Histogram
	breakerState     prometheus.Gauge
	reembedded       prometheus.Counter
	dimensions       prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		truncations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_truncations_total",
			Help:      "Texts truncated to the hard token cap.",
		}),
		truncatedTokens: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segment_truncated_tokens",
			Help:      "Tokens removed per hard cap truncation.",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 8),
		}),
		segments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_extracted_total",
			Help:      "Evidence segments produced by extraction.",
		}, []string{"kind"}),
		segmentsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_dropped_total",
			Help:      "Candidate segments discarded during extraction.",
		}, []string{"reason"}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Completed retrievals by search path.",
		}, []string{"path"}),
		retrievalErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_errors_total",
			Help:      "Failed retrievals by error kind.",
		}, []string{"kind"}),
		retrievalLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "End to end retrieval latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_breaker_state",
			Help:      "Store circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
		reembedded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_reembedded_total",
			Help:      "Stored segments given a new vector.",
		}),
		dimensions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "embedding_dimensions",
			Help:      "Vector size produced by the last reembedded batch.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.truncations, m.truncatedTokens, m.segments, m.segmentsDropped,
			m.retrievals, m.retrievalErrors, m.retrievalLatency, m.breakerState,
			m.reembedded, m.dimensions,
		)
	}
	return m
}

// ObserveTruncation records one hard cap truncation.
func (m *Metrics) ObserveTruncation(originalTokens, cappedTokens int) {
	if m == nil {
		return
	}
	m.truncations.Inc()
	m.truncatedTokens.Observe(float64(originalTokens - cappedTokens))
}

// SegmentExtracted counts an emitted segment of kind.
func (m *Metrics) SegmentExtracted(kind string) {
	if m == nil {
		return
	}
	m.segments.WithLabelValues(kind).Inc()
}

// SegmentDropped counts a discarded candidate segment.
func (m *Metrics) SegmentDropped(reason string) {
	if m == nil {
		return
	}
	m.segmentsDropped.WithLabelValues(reason).Inc()
}

// RetrievalCompleted records a successful retrieval.
func (m *Metrics) RetrievalCompleted(path string, seconds float64) {
	if m == nil {
		return
	}
	m.retrievals.WithLabelValues(path).Inc()
	m.retrievalLatency.Observe(seconds)
}

// RetrievalFailed records a failed retrieval.
func (m *Metrics) RetrievalFailed(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.retrievalErrors.WithLabelValues(kind).Inc()
	m.retrievalLatency.Observe(seconds)
}

// SetBreakerState publishes the store breaker state.
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.breakerState.Set(float64(state))
}

// SegmentsReembedded records a batch of n segments given vectors of dimensions.
func (m *Metrics) SegmentsReembedded(n, dimensions int) {
	if m == nil {
		return
	}
	m.reembedded.Add(float64(n))
	m.dimensions.Set(float64(dimensions))
}
