// Package output delivers simulation results to stdout, JSONL files and
// GreptimeDB, and replays recorded results.
package output

import (
	"slices"
	"time"

	"cascade-sim/internal/analysis"
)

// ResultWriter receives finished simulation results.
type ResultWriter interface {
	WriteResult(*analysis.AggregateResult) error
}

// ForecastRow is the per-node view of one result.
type ForecastRow struct {
	SimulationID       string    `json:"simulation_id"`
	ScenarioName       string    `json:"scenario_name"`
	NodeID             string    `json:"node_id"`
	FailureProbability float64   `json:"failure_probability"`
	MeanTimeToFailure  float64   `json:"mean_time_to_failure"`
	BottleneckRank     int       `json:"bottleneck_rank"` // 1-based, 0 when not ranked
	Timestamp          time.Time `json:"ts"`
}

// ForecastRows flattens res into one row per node, ordered by node id.
func ForecastRows(res *analysis.AggregateResult) []ForecastRow {
	rank := make(map[string]int, len(res.BottleneckNodes))
	for i, id := range res.BottleneckNodes {
		rank[id] = i + 1
	}
	ids := make([]string, 0, len(res.FailureProbabilityByNode))
	for id := range res.FailureProbabilityByNode {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	rows := make([]ForecastRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, ForecastRow{
			SimulationID:       res.ID,
			ScenarioName:       res.ScenarioName,
			NodeID:             id,
			FailureProbability: res.FailureProbabilityByNode[id],
			MeanTimeToFailure:  res.MeanTimeToFailureByNode[id],
			BottleneckRank:     rank[id],
			Timestamp:          res.EndTime,
		})
	}
	return rows
}
