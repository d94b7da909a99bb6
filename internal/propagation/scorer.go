// Package propagation computes the probability that a healthy node fails
// given its own state, the failures so far and the triggering event.
package propagation

import (
	"math"

	"cascade-sim/internal/graph"
	"cascade-sim/internal/scenario"
)

const (
	overloadFactor    = 1.5
	highLoadFactor    = 1.2
	highLoadRatio     = 0.8
	dependencyPerNode = 0.1
	heatThresholdC    = 35.0
	heatFactor        = 1.2
	windThresholdKmh  = 50.0
	windFactor        = 1.3
)

// Factors is the multiplicative breakdown of one probability.
type Factors struct {
	Base          float64 `json:"base"`
	Load          float64 `json:"load"`
	Dependency    float64 `json:"dependency"`
	Severity      float64 `json:"severity"`
	Environmental float64 `json:"environmental"`
	Learned       float64 `json:"learned"`
}

// Probability multiplies the factors and clamps the product to [0,1].
func (f Factors) Probability() float64 {
	return clamp01(f.Base * f.Load * f.Dependency * f.Severity * f.Environmental * f.Learned)
}

// ComputeFactors evaluates every factor for candidate.
func ComputeFactors(candidate graph.NodeSnapshot, failedCount int, sc *scenario.Parameters, learned float64) Factors {
	f := Factors{
		Base:          sc.BasePropagationProbability,
		Load:          1.0,
		Dependency:    1 + dependencyPerNode*float64(failedCount),
		Severity:      1 + sc.EventSeverity,
		Environmental: 1.0,
		Learned:       clamp01(learned),
	}
	switch ratio := candidate.LoadRatio(); {
	case ratio > sc.LoadThresholdMultiplier:
		f.Load = overloadFactor
	case ratio > highLoadRatio:
		f.Load = highLoadFactor
	}
	if sc.TemperatureCelsius != nil && *sc.TemperatureCelsius > heatThresholdC {
		f.Environmental *= heatFactor
	}
	if sc.WindSpeedKmh != nil && *sc.WindSpeedKmh > windThresholdKmh {
		f.Environmental *= windFactor
	}
	return f
}

// Score returns the failure probability of candidate. It is a pure function
// of its arguments. elapsed does not enter the deterministic factors; it
// reaches the result through the learned factor's features.
func Score(candidate graph.NodeSnapshot, failedCount int, sc *scenario.Parameters, elapsed, learned float64) float64 {
	return ComputeFactors(candidate, failedCount, sc, learned).Probability()
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
