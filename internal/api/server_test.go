package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"cascade-sim/internal/analysis"
	"cascade-sim/internal/graph"
	"cascade-sim/internal/logging"
	"cascade-sim/internal/metrics"
	"cascade-sim/internal/montecarlo"
	"cascade-sim/internal/propagation"
	"cascade-sim/internal/scenario"
)

const validRequest = `{
  "scenario_name": "api",
  "initial_failure_nodes": ["A"],
  "event_type": "power_outage",
  "event_severity": 0.3,
  "simulation_horizon_hours": 24,
  "monte_carlo_runs": 50,
  "confidence_level": 0.95,
  "time_step_minutes": 5,
  "base_propagation_probability": 1,
  "load_threshold_multiplier": 1.2,
  "recovery_enabled": true,
  "mean_recovery_time_hours": 12,
  "seed": 7
}`

func newTestServer(t *testing.T, sim Simulator, opts Options) *Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return NewServer(sim, opts)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Detail
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, Options{})
	w := do(s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" || body["service"] != "cascading-failure" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestGetSimulationNotImplemented(t *testing.T) {
	s := newTestServer(t, nil, Options{})
	w := do(s, http.MethodGet, "/api/v1/simulations/abc", "")
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", w.Code)
	}
	if d := detail(t, w); !strings.Contains(d, "abc") {
		t.Fatalf("detail = %q", d)
	}
}

type collectWriter struct{ results []*analysis.AggregateResult }

func (c *collectWriter) WriteResult(r *analysis.AggregateResult) error {
	c.results = append(c.results, r)
	return nil
}

func TestSimulateCascade(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := graph.NewStaticProvider(
		[]graph.NodeSnapshot{{ID: "A"}, {ID: "B", Capacity: 1}},
		[]graph.Edge{{Source: "A", Target: "B"}})
	o := montecarlo.New(p, propagation.Constant(1), montecarlo.Config{Workers: 2}, metrics.New(reg))
	cw := &collectWriter{}
	s := newTestServer(t, o, Options{Writer: cw, Gatherer: reg})

	w := do(s, http.MethodPost, "/api/v1/simulate/cascade", validRequest)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res analysis.AggregateResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.ScenarioName != "api" || res.RunsCompleted != 50 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.FailureProbabilityByNode["B"] != 1 {
		t.Fatalf("P(B) = %v, want 1", res.FailureProbabilityByNode["B"])
	}
	if len(cw.results) != 1 || cw.results[0].ID != res.ID {
		t.Fatalf("writer did not receive the result")
	}

	mw := do(s, http.MethodGet, "/metrics", "")
	if mw.Code != http.StatusOK || !strings.Contains(mw.Body.String(), "cascade_runs_total 50") {
		t.Fatalf("metrics missing run counter: %s", mw.Body.String())
	}
}

func TestSimulateInvalidScenario(t *testing.T) {
	s := newTestServer(t, nil, Options{})
	for _, body := range []string{
		`{"scenario_name":"x","initial_failure_nodes":[],"event_type":"flood","event_severity":0.5}`,
		`{"scenario_name":"x","initial_failure_nodes":["A"],"event_type":"meteor","event_severity":0.5}`,
		`{"scenario_name":"x","initial_failure_nodes":["A"],"event_type":"flood","event_severity":0.5,"monte_carlo_runs":0}`,
		`{"scenario_name":"x","initial_failure_nodes":["A"],"event_type":"flood","event_severity":0.5}`,
		`not json`,
	} {
		w := do(s, http.MethodPost, "/api/v1/simulate/cascade", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

type stubSimulator struct{ err error }

func (s stubSimulator) Run(context.Context, *scenario.Parameters, montecarlo.ProgressFunc) (*analysis.AggregateResult, error) {
	return nil, s.err
}

func TestSimulateErrorMapping(t *testing.T) {
	cancelled := fmt.Errorf("%w: %w", montecarlo.ErrCancelled, analysis.ErrEmptyRunSet)
	s := newTestServer(t, stubSimulator{err: cancelled}, Options{})
	if w := do(s, http.MethodPost, "/api/v1/simulate/cascade", validRequest); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("cancelled: status = %d, want 503", w.Code)
	}

	s = newTestServer(t, stubSimulator{err: errors.New("disk on fire")}, Options{})
	w := do(s, http.MethodPost, "/api/v1/simulate/cascade", validRequest)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if d := detail(t, w); !strings.Contains(d, "disk on fire") {
		t.Fatalf("detail = %q", d)
	}
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	s := newTestServer(t, nil, Options{})
	if w := do(s, http.MethodGet, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
