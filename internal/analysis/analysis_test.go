package analysis

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"cascade-sim/internal/scenario"
	"cascade-sim/internal/sim"
)

func seed(id string) sim.FailureRecord {
	return sim.FailureRecord{NodeID: id, Type: sim.FailureSeed, Probability: 1, Impact: 1}
}

func cascade(id, by string, at float64, depth int) sim.FailureRecord {
	return sim.FailureRecord{NodeID: id, Type: sim.FailureCascade, Time: at, Probability: 0.5, Impact: 0.5, CausedBy: by, Depth: depth}
}

func run(recs ...sim.FailureRecord) sim.RunResult {
	r := sim.RunResult{Failures: recs}
	var sumT float64
	for _, f := range recs {
		r.TotalImpact += f.Impact
		sumT += f.Time
		if f.Depth > r.MaxDepth {
			r.MaxDepth = f.Depth
		}
		if f.CausedBy != "" {
			r.TimeSeries = append(r.TimeSeries, sim.Event{Time: f.Time, NodeID: f.NodeID, Probability: f.Probability, CausedBy: f.CausedBy})
		}
	}
	r.MeanFailureTime = sumT / float64(len(recs))
	return r
}

func sampleRuns() []sim.RunResult {
	return []sim.RunResult{
		run(seed("A"), cascade("B", "A", 10, 1), cascade("C", "B", 20, 2)),
		run(seed("A"), cascade("B", "A", 30, 1)),
		run(seed("A")),
		run(seed("A"), cascade("B", "A", 20, 1), cascade("C", "B", 40, 2)),
	}
}

func TestPercentile(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	if got := Percentile(xs, 0.5); got != 2.5 {
		t.Fatalf("median = %v, want 2.5", got)
	}
	if got := Percentile(xs, 0); got != 1 {
		t.Fatalf("p0 = %v, want 1", got)
	}
	if got := Percentile(xs, 1); got != 4 {
		t.Fatalf("p100 = %v, want 4", got)
	}
	if got := Percentile([]float64{7}, 0.975); got != 7 {
		t.Fatalf("single value percentile = %v", got)
	}
	if !math.IsNaN(Percentile(nil, 0.5)) {
		t.Fatalf("empty percentile should be NaN")
	}
}

func TestAggregateEmptyRunSet(t *testing.T) {
	if _, err := Aggregate(nil, 1, 0.95); !errors.Is(err, ErrEmptyRunSet) {
		t.Fatalf("expected ErrEmptyRunSet, got %v", err)
	}
}

func TestAggregateStatistics(t *testing.T) {
	res, err := Aggregate(sampleRuns(), 1, 0.5)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	wantProb := map[string]float64{"A": 1, "B": 0.75, "C": 0.5}
	if !reflect.DeepEqual(res.FailureProbabilityByNode, wantProb) {
		t.Fatalf("probabilities = %v, want %v", res.FailureProbabilityByNode, wantProb)
	}
	if res.MeanTimeToFailureByNode["B"] != 20 || res.MeanTimeToFailureByNode["C"] != 30 {
		t.Fatalf("unexpected mean times %v", res.MeanTimeToFailureByNode)
	}
	if res.CascadeProbability != 0.75 {
		t.Fatalf("cascade probability = %v, want 0.75", res.CascadeProbability)
	}
	if res.TotalAffectedNodes != 2.25 {
		t.Fatalf("mean affected = %v, want 2.25", res.TotalAffectedNodes)
	}
	if res.CascadeDepth != 1.25 {
		t.Fatalf("mean depth = %v, want 1.25", res.CascadeDepth)
	}
	// affected sorted [1 2 3 3]; q=0.25 -> rank 0.75 -> 1.75; q=0.75 -> rank 2.25 -> 3
	if res.AffectedNodesCI != [2]int{1, 3} {
		t.Fatalf("affected CI = %v, want [1 3]", res.AffectedNodesCI)
	}
	if res.ImpactScoreCI[0] > res.ImpactScoreCI[1] {
		t.Fatalf("impact CI not ordered: %v", res.ImpactScoreCI)
	}
	if len(res.TimeSeriesFailures) != 2 || res.TimeSeriesFailures[0].NodeID != "B" {
		t.Fatalf("time series should come from the first run: %+v", res.TimeSeriesFailures)
	}
}

func TestRankBottlenecks(t *testing.T) {
	got := RankBottlenecks(sampleRuns(), 10)
	ids := make([]string, len(got))
	for i, b := range got {
		ids[i] = b.NodeID
	}
	if !reflect.DeepEqual(ids, []string{"A", "B", "C"}) {
		t.Fatalf("ranking = %v", ids)
	}
	if got[0].Importance != 4 {
		t.Fatalf("seed importance = %v, want 4", got[0].Importance)
	}

	tied := []sim.RunResult{run(seed("Z"), seed("M"))}
	got = RankBottlenecks(tied, 1)
	if len(got) != 1 || got[0].NodeID != "M" {
		t.Fatalf("ties should break by node id, got %+v", got)
	}
}

func TestExtractCriticalPaths(t *testing.T) {
	paths := ExtractCriticalPaths(sampleRuns(), 5)
	want := []CriticalPath{
		{Nodes: []string{"A", "B", "C"}, Count: 2, Frequency: 0.5},
		{Nodes: []string{"A", "B"}, Count: 1, Frequency: 0.25},
		{Nodes: []string{"A"}, Count: 1, Frequency: 0.25},
	}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %+v, want %+v", paths, want)
	}
}

func TestCausalPathsBranching(t *testing.T) {
	r := run(seed("A"), seed("X"), cascade("B", "A", 5, 1), cascade("C", "A", 6, 1), cascade("D", "B", 9, 2))
	got := CausalPaths(&r)
	want := [][]string{{"X"}, {"A", "C"}, {"A", "B", "D"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
}

func TestBuildFailureTree(t *testing.T) {
	r := run(seed("A"), seed("X"), cascade("B", "A", 5, 1))
	tree := BuildFailureTree(&r)
	if len(tree.Root.Children) != 2 || tree.Root.Children[1].NodeID != "X" || tree.Root.Children[0].Impact != 1 {
		t.Fatalf("unexpected tree %+v", tree)
	}
}

func TestRecommend(t *testing.T) {
	sc := scenario.Default()
	res := &AggregateResult{
		BottleneckNodes:        []string{"substation-7"},
		CascadeProbability:     0.85,
		TotalImpactScore:       60,
		MeanCascadeTimeMinutes: 12.34,
	}
	recs := Recommend(res, &sc)
	if len(recs) != 5 {
		t.Fatalf("expected 5 recommendations, got %d: %v", len(recs), recs)
	}
	checks := []string{"'substation-7'", "(85.0%)", "Severe impact", "(avg 12.3 min)", "proactive maintenance"}
	for i, c := range checks {
		if !strings.Contains(recs[i], c) {
			t.Fatalf("recommendation %d %q missing %q", i, recs[i], c)
		}
	}

	sc.RecoveryEnabled = false
	quiet := &AggregateResult{CascadeProbability: 0.1, TotalImpactScore: 1, MeanCascadeTimeMinutes: 90}
	if recs := Recommend(quiet, &sc); len(recs) != 0 {
		t.Fatalf("expected no recommendations, got %v", recs)
	}
}

func TestAnalyze(t *testing.T) {
	sc := scenario.Default()
	sc.Name = "unit"
	sc.InitialFailureNodes = []string{"A"}
	sc.MonteCarloRuns = 4
	res, err := Analyze(sampleRuns(), &sc)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.ScenarioName != "unit" || res.RunsRequested != 4 || res.RunsCompleted != 4 {
		t.Fatalf("unexpected metadata %+v", res)
	}
	if len(res.BottleneckNodes) != 3 || res.BottleneckNodes[0] != "A" {
		t.Fatalf("unexpected bottlenecks %v", res.BottleneckNodes)
	}
	if res.FailureTree == nil || len(res.FailureTree.Root.Children) != 1 {
		t.Fatalf("unexpected failure tree %+v", res.FailureTree)
	}
	if !strings.HasPrefix(res.Recommendations[0], "Critical: Reinforce node 'A'") {
		t.Fatalf("unexpected recommendations %v", res.Recommendations)
	}
}
