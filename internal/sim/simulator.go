package sim

import (
	"math"
	"math/rand/v2"

	"cascade-sim/internal/graph"
	"cascade-sim/internal/propagation"
	"cascade-sim/internal/scenario"
)

const (
	seedImpact      = 1.0
	ttfRatePerProb  = 0.1
	seedProbability = 1.0
)

// Simulator holds the read-only inputs shared by every run of one request.
// It is safe for concurrent use as long as each Run gets its own rng.
type Simulator struct {
	graph    *graph.Context
	scenario *scenario.Parameters
	model    propagation.LearnedModel
	seeds    []string
	horizon  float64
	step     float64
	mode     scenario.Scheduling
}

// New returns a simulator for sc over gc. A nil model scores every learned
// factor as 1.
func New(gc *graph.Context, sc *scenario.Parameters, model propagation.LearnedModel) *Simulator {
	if gc == nil {
		gc = graph.NewContext()
	}
	return &Simulator{
		graph:    gc,
		scenario: sc,
		model:    model,
		seeds:    sc.Seeds(),
		horizon:  sc.HorizonMinutes(),
		step:     sc.TimeStepMinutes,
		mode:     sc.Mode(),
	}
}

// Seeds returns the deduplicated initial failure nodes.
func (s *Simulator) Seeds() []string { return s.seeds }

// Run executes one cascade. Identical rng state yields an identical result.
func (s *Simulator) Run(rng *rand.Rand) RunResult {
	res := RunResult{index: make(map[string]int, len(s.seeds)*4)}

	var wl worklist
	if s.mode == scenario.SchedulingEvent {
		wl = &eventQueue{}
	} else {
		wl = &fifoList{}
	}

	for _, id := range s.seeds {
		res.add(FailureRecord{
			NodeID:      id,
			Type:        FailureSeed,
			Probability: seedProbability,
			Impact:      seedImpact,
		})
		wl.push(entry{node: id})
	}

	cursor := 0.0
	for wl.len() > 0 {
		if q, ok := wl.(*eventQueue); ok {
			if q.peek().at >= s.horizon {
				break
			}
			e := q.pop()
			cursor = e.at
			s.expand(&res, wl, e, cursor, rng)
			continue
		}
		if cursor >= s.horizon {
			break
		}
		e := wl.pop()
		s.expand(&res, wl, e, cursor, rng)
		cursor += s.step
	}

	s.summarise(&res)
	return res
}

// expand evaluates every not-yet-failed neighbour of e once.
func (s *Simulator) expand(res *RunResult, wl worklist, e entry, cursor float64, rng *rand.Rand) {
	for _, nb := range s.graph.Neighbors(e.node) {
		if res.failed(nb) {
			continue
		}
		node, ok := s.graph.Node(nb)
		if !ok {
			res.SkippedNodes++
			continue
		}
		res.Evaluations++

		failedCount := len(res.Failures)
		learned := propagation.LearnedFactor(s.model, node, failedCount, cursor, rng)
		p := propagation.Score(node, failedCount, s.scenario, cursor, learned)
		if rng.Float64() >= p {
			continue
		}

		at := cursor + s.timeToFailure(p, rng)
		if s.mode == scenario.SchedulingEvent && at > s.horizon {
			continue
		}
		rec := FailureRecord{
			NodeID:      nb,
			Type:        FailureCascade,
			Time:        at,
			Probability: p,
			Impact:      node.ImpactScore(),
			CausedBy:    e.node,
			Depth:       e.depth + 1,
		}
		res.add(rec)
		res.TimeSeries = append(res.TimeSeries, Event{Time: at, NodeID: nb, Probability: p, CausedBy: e.node})
		wl.push(entry{node: nb, at: at, depth: rec.Depth})
	}
}

// timeToFailure draws an exponential delay with rate p*0.1, floored at one
// time step. p must be positive.
func (s *Simulator) timeToFailure(p float64, rng *rand.Rand) float64 {
	ttf := rng.ExpFloat64() / (p * ttfRatePerProb)
	return math.Max(s.step, ttf)
}

func (s *Simulator) summarise(res *RunResult) {
	var sumTime float64
	for _, f := range res.Failures {
		res.TotalImpact += f.Impact
		sumTime += f.Time
		if f.Depth > res.MaxDepth {
			res.MaxDepth = f.Depth
		}
	}
	if n := len(res.Failures); n > 0 {
		res.MeanFailureTime = sumTime / float64(n)
	}
}
