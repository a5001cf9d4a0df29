// Package metric defines the Prometheus instrumentation for the flow engine.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all engine-level collectors.
type Metrics struct {
	// TurnsTotal counts inbound turns by outcome
	// (ok, graph_error, configuration_error, state_store_error).
	TurnsTotal *prometheus.CounterVec
	// TurnDuration observes end-to-end Step latency.
	TurnDuration prometheus.Histogram
	// EdgeFallbacks counts handle lookups that fell back to the first
	// outgoing edge. A non-zero rate signals a misconfigured flow.
	EdgeFallbacks *prometheus.CounterVec
	// Handoffs counts terminal hand-offs by kind (team, agent).
	Handoffs *prometheus.CounterVec
	// HistoryWriteFailures counts audit records lost after termination.
	HistoryWriteFailures prometheus.Counter
}

// New creates the engine metrics set. Collectors are unregistered until
// Register is called, so tests can use a Metrics without a registry.
func New() *Metrics {
	return &Metrics{
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowengine",
				Subsystem: "runner",
				Name:      "turns_total",
				Help:      "Total number of conversation turns processed",
			},
			[]string{"outcome"},
		),
		TurnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "flowengine",
				Subsystem: "runner",
				Name:      "turn_duration_seconds",
				Help:      "Conversation turn processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		EdgeFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowengine",
				Subsystem: "graph",
				Name:      "edge_fallbacks_total",
				Help:      "Edge resolutions that fell back to the first outgoing edge",
			},
			[]string{"flow_id"},
		),
		Handoffs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowengine",
				Subsystem: "runner",
				Name:      "handoffs_total",
				Help:      "Conversations handed off to a human team or agent",
			},
			[]string{"kind"},
		),
		HistoryWriteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "flowengine",
				Subsystem: "history",
				Name:      "write_failures_total",
				Help:      "Terminal audit records that could not be appended",
			},
		),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.TurnsTotal, m.TurnDuration, m.EdgeFallbacks, m.Handoffs, m.HistoryWriteFailures,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler returns the HTTP handler serving the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
