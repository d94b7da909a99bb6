// Package metrics exposes Prometheus instruments for the simulation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Simulation statuses used as the status label.
const (
	StatusOK        = "ok"
	StatusInvalid   = "invalid"
	StatusCancelled = "cancelled"
	StatusError     = "error"
)

// Metrics groups the engine instruments.
type Metrics struct {
	Simulations        *prometheus.CounterVec
	SimulationDuration prometheus.Histogram
	Runs               prometheus.Counter
	SkippedNodes       prometheus.Counter
	GraphFetchErrors   *prometheus.CounterVec
	GraphNodes         prometheus.Gauge
	// BreakerOpen is 1 while the knowledge-graph circuit breaker is open.
	BreakerOpen prometheus.Gauge
}

// New registers the instruments on reg. A nil reg uses a private registry so
// callers that do not scrape metrics need no special casing.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Simulations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cascade_simulations_total",
			Help: "Simulation requests by outcome.",
		}, []string{"status"}),
		SimulationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cascade_simulation_duration_seconds",
			Help:    "Wall-clock time of one simulation request.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		Runs: f.NewCounter(prometheus.CounterOpts{
			Name: "cascade_runs_total",
			Help: "Completed Monte Carlo runs.",
		}),
		SkippedNodes: f.NewCounter(prometheus.CounterOpts{
			Name: "cascade_skipped_nodes_total",
			Help: "Neighbour evaluations skipped because the node snapshot was unavailable.",
		}),
		GraphFetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cascade_graph_fetch_errors_total",
			Help: "Failed knowledge-graph calls by operation.",
		}, []string{"op"}),
		GraphNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "cascade_graph_nodes",
			Help: "Nodes in the most recently fetched graph context.",
		}),
		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "cascade_graph_breaker_open",
			Help: "Knowledge-graph circuit breaker state (0=closed or half-open, 1=open).",
		}),
	}
}
