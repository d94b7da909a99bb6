// Package sim runs a single stochastic cascade from the initial failures to
// worklist exhaustion or the simulation horizon.
package sim

// FailureType distinguishes initial failures from propagated ones.
type FailureType string

const (
	FailureSeed    FailureType = "seed"
	FailureCascade FailureType = "cascade"
)

// FailureRecord describes how and when one node failed in one run.
type FailureRecord struct {
	NodeID      string      `json:"node_id"`
	Type        FailureType `json:"failure_type"`
	Time        float64     `json:"failure_time"`
	Probability float64     `json:"failure_probability"`
	Impact      float64     `json:"impact_score"`
	CausedBy    string      `json:"caused_by,omitempty"`
	Depth       int         `json:"depth"`
}

// Event is one entry of a run's failure time series.
type Event struct {
	Time        float64 `json:"time"`
	NodeID      string  `json:"node_id"`
	Probability float64 `json:"failure_prob"`
	CausedBy    string  `json:"caused_by"`
}

// RunResult is the outcome of one Monte Carlo run.
type RunResult struct {
	// Failures in discovery order. A node appears at most once.
	Failures        []FailureRecord `json:"failures"`
	MaxDepth        int             `json:"max_depth"`
	TotalImpact     float64         `json:"total_impact"`
	MeanFailureTime float64         `json:"mean_failure_time"`
	TimeSeries      []Event         `json:"time_series"`
	// SkippedNodes counts neighbour evaluations dropped for lack of a snapshot.
	SkippedNodes int `json:"skipped_nodes"`
	Evaluations  int `json:"evaluations"`

	index map[string]int
}

// Failure returns the record for id, if it failed in this run.
func (r *RunResult) Failure(id string) (FailureRecord, bool) {
	if r.index == nil {
		for _, f := range r.Failures {
			if f.NodeID == id {
				return f, true
			}
		}
		return FailureRecord{}, false
	}
	i, ok := r.index[id]
	if !ok {
		return FailureRecord{}, false
	}
	return r.Failures[i], true
}

// Affected is the number of failed nodes, seeds included.
func (r *RunResult) Affected() int { return len(r.Failures) }

func (r *RunResult) add(rec FailureRecord) {
	r.index[rec.NodeID] = len(r.Failures)
	r.Failures = append(r.Failures, rec)
}

func (r *RunResult) failed(id string) bool {
	_, ok := r.index[id]
	return ok
}
