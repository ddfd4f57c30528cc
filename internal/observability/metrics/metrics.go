// Package metrics provides Prometheus metrics for conversation sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "events_assistant"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors shared by all sessions of a process.
type Metrics struct {
	Registry *prometheus.Registry

	// NLU metrics
	NLURequests *prometheus.CounterVec
	NLULatency  *prometheus.HistogramVec

	// Transcript metrics
	TranscriptEntries *prometheus.CounterVec
	SessionsActive    prometheus.Gauge

	// Place lookup metrics
	PlaceLookups *prometheus.CounterVec
}

// New creates collectors registered on a fresh registry, so independent
// instances never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		NLURequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nlu_requests_total",
			Help:      "Total NLU query requests by operation and outcome",
		}, []string{"operation", "outcome"}),
		NLULatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "nlu_request_duration_seconds",
			Help:      "NLU query latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"operation"}),
		TranscriptEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_entries_total",
			Help:      "Total transcript entries appended by author",
		}, []string{"author"}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of conversation sessions held in memory",
		}),
		PlaceLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "place_lookups_total",
			Help:      "Total place lookups by outcome",
		}, []string{"outcome"}),
	}
}

// Author returns the transcript_entries_total label for an entry.
func Author(isBot bool) string {
	if isBot {
		return "bot"
	}
	return "user"
}
