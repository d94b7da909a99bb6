package analysis

import (
	"errors"
	"math"
	"slices"

	"cascade-sim/internal/scenario"
	"cascade-sim/internal/sim"
)

// ErrEmptyRunSet is returned when there is nothing to aggregate.
var ErrEmptyRunSet = errors.New("no completed runs to aggregate")

// Percentile returns the q-quantile (q in [0,1]) of sorted using linear
// interpolation between order statistics at rank q*(n-1).
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}
	rank := q * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Aggregate computes the run statistics. seedCount is the number of distinct
// initial failures; confidence selects the interval percentiles.
func Aggregate(runs []sim.RunResult, seedCount int, confidence float64) (*AggregateResult, error) {
	n := len(runs)
	if n == 0 {
		return nil, ErrEmptyRunSet
	}

	affected := make([]float64, n)
	impacts := make([]float64, n)
	depths := make([]float64, n)
	times := make([]float64, n)
	counts := make(map[string]int)
	timeSums := make(map[string]float64)
	cascades, skipped := 0, 0

	for i := range runs {
		r := &runs[i]
		affected[i] = float64(r.Affected())
		impacts[i] = r.TotalImpact
		depths[i] = float64(r.MaxDepth)
		times[i] = r.MeanFailureTime
		skipped += r.SkippedNodes
		if r.Affected() > seedCount {
			cascades++
		}
		for _, f := range r.Failures {
			counts[f.NodeID]++
			timeSums[f.NodeID] += f.Time
		}
	}

	res := &AggregateResult{
		RunsCompleted:            n,
		SeedCount:                seedCount,
		SkippedNodeEvaluations:   skipped,
		TotalAffectedNodes:       mean(affected),
		CascadeDepth:             mean(depths),
		MeanCascadeTimeMinutes:   mean(times),
		TotalImpactScore:         mean(impacts),
		FailureProbabilityByNode: make(map[string]float64, len(counts)),
		MeanTimeToFailureByNode:  make(map[string]float64, len(counts)),
		CascadeProbability:       float64(cascades) / float64(n),
		TimeSeriesFailures:       runs[0].TimeSeries,
	}
	if res.TimeSeriesFailures == nil {
		res.TimeSeriesFailures = []sim.Event{}
	}
	for id, c := range counts {
		res.FailureProbabilityByNode[id] = float64(c) / float64(n)
		res.MeanTimeToFailureByNode[id] = timeSums[id] / float64(c)
	}

	alpha := 1 - confidence
	slices.Sort(affected)
	slices.Sort(impacts)
	res.AffectedNodesCI = [2]int{
		int(Percentile(affected, alpha/2)),
		int(Percentile(affected, 1-alpha/2)),
	}
	res.ImpactScoreCI = [2]float64{
		Percentile(impacts, alpha/2),
		Percentile(impacts, 1-alpha/2),
	}
	return res, nil
}

// Analyze aggregates runs and attaches the bottleneck ranking, critical
// paths, failure tree and recommendations.
func Analyze(runs []sim.RunResult, sc *scenario.Parameters) (*AggregateResult, error) {
	res, err := Aggregate(runs, len(sc.Seeds()), sc.ConfidenceLevel)
	if err != nil {
		return nil, err
	}
	res.ScenarioName = sc.Name
	res.RunsRequested = sc.MonteCarloRuns
	res.Bottlenecks = RankBottlenecks(runs, maxBottlenecks)
	res.BottleneckNodes = make([]string, len(res.Bottlenecks))
	for i, b := range res.Bottlenecks {
		res.BottleneckNodes[i] = b.NodeID
	}
	res.CriticalPaths = ExtractCriticalPaths(runs, maxCriticalPaths)
	res.FailureTree = BuildFailureTree(&runs[0])
	res.Recommendations = Recommend(res, sc)
	return res, nil
}
