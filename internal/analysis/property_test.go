package analysis

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"cascade-sim/internal/graph"
	"cascade-sim/internal/propagation"
	"cascade-sim/internal/scenario"
	"cascade-sim/internal/sim"
)

// randomGraph builds a connected-ish random topology of size nodes.
func randomGraph(size int, seed uint64) *graph.Context {
	rng := rand.New(rand.NewPCG(seed, 99))
	gc := graph.NewContext()
	for i := range size {
		id := fmt.Sprintf("n%d", i)
		gc.Nodes[id] = graph.NodeSnapshot{
			ID:               id,
			Capacity:         100 + rng.Float64()*5000,
			CurrentLoad:      rng.Float64() * 4000,
			HealthStatus:     rng.Float64(),
			CriticalityScore: rng.Float64(),
		}
	}
	for i := range size {
		for range 1 + rng.IntN(3) {
			gc.Adjacency[fmt.Sprintf("n%d", i)] = append(gc.Adjacency[fmt.Sprintf("n%d", i)], fmt.Sprintf("n%d", rng.IntN(size)))
		}
	}
	return gc
}

func simulate(gc *graph.Context, runs, seeds int, base float64, batch uint64) ([]sim.RunResult, *scenario.Parameters) {
	sc := scenario.Default()
	sc.Name = "property"
	sc.EventType = scenario.EventEarthquake
	sc.EventSeverity = 0.3
	sc.BasePropagationProbability = base
	sc.MonteCarloRuns = runs
	for i := range seeds {
		sc.InitialFailureNodes = append(sc.InitialFailureNodes, fmt.Sprintf("n%d", i))
	}
	s := sim.New(gc, &sc, propagation.Constant(1))
	out := make([]sim.RunResult, runs)
	for i := range out {
		out[i] = s.Run(rand.New(rand.NewPCG(batch, uint64(i))))
	}
	return out, &sc
}

func TestAggregateInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping property-based test in short mode")
	}
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("node probability equals occurrences over runs", prop.ForAll(
		func(size, runs int, base float64, batch uint64) bool {
			gc := randomGraph(size, batch)
			rs, sc := simulate(gc, runs, 1, base, batch)
			res, err := Analyze(rs, sc)
			if err != nil {
				return false
			}
			occurrences := map[string]int{}
			for i := range rs {
				for _, f := range rs[i].Failures {
					occurrences[f.NodeID]++
				}
			}
			for id, p := range res.FailureProbabilityByNode {
				if p < 0 || p > 1 || p != float64(occurrences[id])/float64(runs) {
					return false
				}
			}
			return len(res.FailureProbabilityByNode) == len(occurrences)
		},
		gen.IntRange(1, 25),
		gen.IntRange(1, 60),
		gen.Float64Range(0, 1),
		gen.UInt64(),
	))

	properties.Property("affected CI is ordered and bounded", prop.ForAll(
		func(size, seeds, runs int, confidence float64, batch uint64) bool {
			if seeds > size {
				seeds = size
			}
			gc := randomGraph(size, batch)
			rs, sc := simulate(gc, runs, seeds, 0.6, batch)
			sc.ConfidenceLevel = confidence
			res, err := Analyze(rs, sc)
			if err != nil {
				return false
			}
			lo, hi := res.AffectedNodesCI[0], res.AffectedNodesCI[1]
			return lo <= hi && lo >= seeds && hi <= gc.SizeWith(sc.Seeds()) &&
				res.ImpactScoreCI[0] <= res.ImpactScoreCI[1]
		},
		gen.IntRange(1, 25),
		gen.IntRange(1, 5),
		gen.IntRange(1, 60),
		gen.Float64Range(0, 1),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestCascadeProbabilityMonotoneInBase(t *testing.T) {
	gc := randomGraph(30, 2024)
	const runs = 2000
	prev := -1.0
	for _, base := range []float64{0.05, 0.2, 0.5, 0.9} {
		rs, sc := simulate(gc, runs, 1, base, 7)
		res, err := Analyze(rs, sc)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		// allow sampling noise of a few standard errors
		if res.CascadeProbability+0.03 < prev {
			t.Fatalf("cascade probability fell from %v to %v at base %v", prev, res.CascadeProbability, base)
		}
		prev = res.CascadeProbability
	}
}
