package main

import (
	"fmt"

	"cascade-sim/internal/config"
	"cascade-sim/internal/graph"
	"cascade-sim/internal/metrics"
	"cascade-sim/internal/montecarlo"
	"cascade-sim/internal/propagation"
)

// newProvider returns a static provider when a graph file is given, and the
// knowledge-graph HTTP client otherwise.
func newProvider(c *config.Config, graphFile string) (graph.Provider, error) {
	if graphFile == "" {
		graphFile = c.GraphFile
	}
	if graphFile != "" {
		return graph.LoadStaticProvider(graphFile)
	}
	kg := c.KnowledgeGraph
	return graph.NewHTTPProvider(graph.HTTPConfig{
		BaseURL:         kg.URL,
		Timeout:         kg.Timeout,
		RateLimit:       kg.RateLimit,
		Burst:           kg.Burst,
		RetryAttempts:   kg.RetryAttempts,
		BreakerFailures: kg.BreakerFailures,
	})
}

// newOrchestrator wires provider, learned model and metrics from c.
func newOrchestrator(c *config.Config, provider graph.Provider, m *metrics.Metrics) (*montecarlo.Orchestrator, error) {
	mode, err := graph.ParseFetchMode(c.KnowledgeGraph.Mode)
	if err != nil {
		return nil, err
	}
	mc := c.Engine.Model
	model, err := propagation.NewModel(mc.Kind, mc.Seed, mc.Constant)
	if err != nil {
		return nil, fmt.Errorf("learned model: %w", err)
	}
	return montecarlo.New(provider, model, montecarlo.Config{
		Workers:          c.Engine.Workers,
		ProgressInterval: c.Engine.ProgressInterval,
		Fetch: graph.FetchOptions{
			Mode:     mode,
			MaxDepth: c.KnowledgeGraph.MaxDepth,
		},
	}, m), nil
}
