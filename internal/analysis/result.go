// Package analysis reduces a collection of Monte Carlo runs into the
// aggregate forecast, bottleneck ranking, critical paths and recommendations.
package analysis

import (
	"time"

	"cascade-sim/internal/sim"
)

// Bottleneck is a node ranked by early, frequent involvement across runs.
type Bottleneck struct {
	NodeID     string  `json:"node_id"`
	Importance float64 `json:"importance"`
}

// CriticalPath is a seed-to-leaf causal chain and how often it occurred.
type CriticalPath struct {
	Nodes     []string `json:"path"`
	Count     int      `json:"count"`
	Frequency float64  `json:"frequency"`
}

// TreeNode is a first-level child of the failure tree.
type TreeNode struct {
	NodeID      string  `json:"node_id"`
	FailureTime float64 `json:"failure_time"`
	Impact      float64 `json:"impact"`
}

// FailureTree is a synthetic root over the seed failures of one
// representative run.
type FailureTree struct {
	Root struct {
		Children []TreeNode `json:"children"`
	} `json:"root"`
}

// AggregateResult is the forecast returned for one simulation request.
type AggregateResult struct {
	ID                 string    `json:"id"`
	RequestID          string    `json:"request_id"`
	ScenarioName       string    `json:"scenario_name"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	ComputationSeconds float64   `json:"computation_time_seconds"`

	Seed                   uint64 `json:"seed"`
	RunsRequested          int    `json:"runs_requested"`
	RunsCompleted          int    `json:"runs_completed"`
	Cancelled              bool   `json:"cancelled"`
	SeedCount              int    `json:"seed_count"`
	GraphNodes             int    `json:"graph_nodes"`
	GraphEdges             int    `json:"graph_edges"`
	GraphFetchErrors       int    `json:"graph_fetch_errors"`
	SkippedNodeEvaluations int    `json:"skipped_node_evaluations"`

	// Means across runs.
	TotalAffectedNodes     float64 `json:"total_affected_nodes"`
	CascadeDepth           float64 `json:"cascade_depth"`
	MeanCascadeTimeMinutes float64 `json:"mean_cascade_time_minutes"`
	TotalImpactScore       float64 `json:"total_impact_score"`

	FailureProbabilityByNode map[string]float64 `json:"failure_probability_by_node"`
	MeanTimeToFailureByNode  map[string]float64 `json:"mean_time_to_failure_by_node"`
	CascadeProbability       float64            `json:"cascade_probability"`
	AffectedNodesCI          [2]int             `json:"affected_nodes_ci"`
	ImpactScoreCI            [2]float64         `json:"impact_score_ci"`

	BottleneckNodes []string       `json:"bottleneck_nodes"`
	Bottlenecks     []Bottleneck   `json:"bottlenecks"`
	CriticalPaths   []CriticalPath `json:"critical_paths"`
	FailureTree     *FailureTree   `json:"failure_tree,omitempty"`

	// TimeSeriesFailures is the time series of the first run, kept as a
	// display sample.
	TimeSeriesFailures []sim.Event `json:"time_series_failures"`
	Recommendations    []string    `json:"recommendations"`
}
