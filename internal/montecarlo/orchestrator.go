// Package montecarlo runs many independent cascade simulations for one
// request and hands the completed runs to the analyzer.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cascade-sim/internal/analysis"
	"cascade-sim/internal/graph"
	"cascade-sim/internal/logging"
	"cascade-sim/internal/metrics"
	"cascade-sim/internal/propagation"
	"cascade-sim/internal/scenario"
	"cascade-sim/internal/sim"
)

// ErrCancelled is returned, together with analysis.ErrEmptyRunSet, when the
// caller cancels before any run completes.
var ErrCancelled = errors.New("simulation cancelled")

// DefaultProgressInterval is the number of runs between progress reports.
const DefaultProgressInterval = 100

// Progress is reported while runs complete.
type Progress struct {
	Scenario  string
	Completed int
	Total     int
	Elapsed   time.Duration
}

// ProgressFunc receives progress reports. It is called from worker
// goroutines and must not block for long.
type ProgressFunc func(Progress)

// Config tunes the orchestrator.
type Config struct {
	// Workers bounds concurrent runs. Zero means GOMAXPROCS.
	Workers          int
	ProgressInterval int
	Fetch            graph.FetchOptions
}

// Orchestrator owns the collaborators shared by every request: the graph
// provider, the learned model and the metrics.
type Orchestrator struct {
	provider graph.Provider
	model    propagation.LearnedModel
	cfg      Config
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates an orchestrator. A nil provider yields empty graphs and a nil
// metrics value uses a private registry.
func New(provider graph.Provider, model propagation.LearnedModel, cfg Config, m *metrics.Metrics) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Orchestrator{provider: provider, model: model, cfg: cfg, metrics: m, now: time.Now}
}

// Run validates sc, fetches its graph context once and simulates it.
func (o *Orchestrator) Run(ctx context.Context, sc *scenario.Parameters, onProgress ProgressFunc) (*analysis.AggregateResult, error) {
	log := logging.FromContext(ctx)
	if err := sc.Validate(); err != nil {
		o.metrics.Simulations.WithLabelValues(metrics.StatusInvalid).Inc()
		return nil, err
	}

	opts := o.cfg.Fetch
	userOnError := opts.OnError
	opts.OnError = func(op, id string, err error) {
		o.metrics.GraphFetchErrors.WithLabelValues(op).Inc()
		log.Warn("graph fetch failed", "op", op, "node", id, "error", err)
		if userOnError != nil {
			userOnError(op, id, err)
		}
	}
	gc, stats := graph.FetchContext(ctx, o.provider, sc.Seeds(), opts)
	o.metrics.GraphNodes.Set(float64(stats.Nodes))
	o.observeBreaker()
	if stats.MissingSeeds > 0 {
		log.Warn("seed nodes not found in knowledge graph", "missing", stats.MissingSeeds)
	}
	log.Info("graph context fetched", "nodes", stats.Nodes, "edges", stats.Edges, "errors", stats.Errors)

	res, err := o.RunWithGraph(ctx, sc, gc, onProgress)
	if res != nil {
		res.GraphFetchErrors = stats.Errors
	}
	return res, err
}

// RunWithGraph simulates sc over an already assembled graph context.
func (o *Orchestrator) RunWithGraph(ctx context.Context, sc *scenario.Parameters, gc *graph.Context, onProgress ProgressFunc) (*analysis.AggregateResult, error) {
	log := logging.FromContext(ctx)
	if err := sc.Validate(); err != nil {
		o.metrics.Simulations.WithLabelValues(metrics.StatusInvalid).Inc()
		return nil, err
	}
	start := o.now()
	batch := rand.Uint64()
	if sc.Seed != nil {
		batch = *sc.Seed
	}
	n := sc.MonteCarloRuns
	log.Info("starting simulation", "scenario", sc.Name, "runs", n, "workers", o.cfg.Workers,
		"seed", batch, "scheduling", sc.Mode())

	s := sim.New(gc, sc, o.model)
	results := make([]sim.RunResult, n)
	finished := make([]bool, n)
	var completed atomic.Int64

	report := func(c int) {
		p := Progress{Scenario: sc.Name, Completed: c, Total: n, Elapsed: o.now().Sub(start)}
		log.Info("simulation progress", "scenario", sc.Name, "completed", c, "total", n)
		if onProgress != nil {
			onProgress(p)
		}
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = s.Run(rand.New(rand.NewPCG(batch, uint64(i))))
			finished[i] = true
			c := int(completed.Add(1))
			if c%o.cfg.ProgressInterval == 0 || c == n {
				report(c)
			}
			return nil
		})
	}
	_ = g.Wait()

	runs := make([]sim.RunResult, 0, completed.Load())
	for i, ok := range finished {
		if ok {
			runs = append(runs, results[i])
		}
	}
	cancelled := len(runs) < n
	o.metrics.Runs.Add(float64(len(runs)))

	res, err := analysis.Analyze(runs, sc)
	if err != nil {
		status := metrics.StatusError
		if cancelled {
			status = metrics.StatusCancelled
			err = fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		o.metrics.Simulations.WithLabelValues(status).Inc()
		return nil, err
	}

	end := o.now()
	res.ID = uuid.NewString()
	res.RequestID = sc.ID
	if res.RequestID == "" {
		res.RequestID = uuid.NewString()
	}
	res.StartTime = start.UTC()
	res.EndTime = end.UTC()
	res.ComputationSeconds = end.Sub(start).Seconds()
	res.Seed = batch
	res.Cancelled = cancelled
	res.GraphNodes = gc.SizeWith(sc.Seeds())
	res.GraphEdges = gc.EdgeCount()

	o.metrics.SkippedNodes.Add(float64(res.SkippedNodeEvaluations))
	o.metrics.SimulationDuration.Observe(res.ComputationSeconds)
	status := metrics.StatusOK
	if cancelled {
		status = metrics.StatusCancelled
		log.Warn("simulation cancelled", "scenario", sc.Name, "completed", len(runs), "requested", n)
	}
	o.metrics.Simulations.WithLabelValues(status).Inc()
	log.Info("simulation finished", "scenario", sc.Name, "runs", len(runs),
		"cascade_probability", res.CascadeProbability, "duration", end.Sub(start))
	return res, nil
}

type breakerStater interface {
	BreakerState() string
}

func (o *Orchestrator) observeBreaker() {
	b, ok := o.provider.(breakerStater)
	if !ok {
		return
	}
	if b.BreakerState() == "open" {
		o.metrics.BreakerOpen.Set(1)
	} else {
		o.metrics.BreakerOpen.Set(0)
	}
}
