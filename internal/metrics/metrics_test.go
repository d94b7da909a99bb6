package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Simulations.WithLabelValues(StatusOK).Inc()
	m.Runs.Add(250)
	m.GraphFetchErrors.WithLabelValues("get_node").Inc()

	if got := testutil.ToFloat64(m.Runs); got != 250 {
		t.Fatalf("runs = %v, want 250", got)
	}
	expected := `
# HELP cascade_simulations_total Simulation requests by outcome.
# TYPE cascade_simulations_total counter
cascade_simulations_total{status="ok"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "cascade_simulations_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestNilRegistererIsPrivate(t *testing.T) {
	a, b := New(nil), New(nil)
	a.Runs.Inc()
	if testutil.ToFloat64(b.Runs) != 0 {
		t.Fatalf("nil registerers must not share state")
	}
}
