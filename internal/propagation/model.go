package propagation

import (
	"fmt"
	"math"
	"math/rand/v2"

	"cascade-sim/internal/graph"
)

// FeatureWidth is the fixed input width of a LearnedModel.
const FeatureWidth = 32

const (
	minutesPerDay       = 1440.0
	failedCountScale    = 100.0
	largeCapacity       = 1000.0
	fillerStdDev        = 0.1
	hiddenWidth         = 128
	propagateActionSlot = 1
)

// Features is the input vector of a LearnedModel.
//
//	[0] load ratio  [1] health  [2] criticality  [3] failed count / 100
//	[4] elapsed minutes / 1440  [5] 1 if capacity > 1000  [6:] filler noise
type Features [FeatureWidth]float64

// BuildFeatures assembles the feature vector for candidate. noise supplies
// the filler dimensions; a nil noise leaves them at zero.
func BuildFeatures(candidate graph.NodeSnapshot, failedCount int, elapsed float64, noise func() float64) Features {
	var f Features
	f[0] = candidate.LoadRatio()
	f[1] = candidate.HealthStatus
	f[2] = candidate.CriticalityScore
	f[3] = float64(failedCount) / failedCountScale
	f[4] = elapsed / minutesPerDay
	if candidate.Capacity > largeCapacity {
		f[5] = 1
	}
	if noise != nil {
		for i := 6; i < FeatureWidth; i++ {
			f[i] = noise()
		}
	}
	return f
}

// LearnedModel scores a feature vector with a probability in [0,1].
// Implementations must be safe for concurrent use.
type LearnedModel interface {
	Score(Features) float64
}

// Constant is a LearnedModel that ignores its input.
type Constant float64

func (c Constant) Score(Features) float64 { return float64(c) }

// LearnedFactor evaluates m for candidate, drawing filler noise from rng.
// A nil model yields 1. Constant models skip feature construction and leave
// rng untouched.
func LearnedFactor(m LearnedModel, candidate graph.NodeSnapshot, failedCount int, elapsed float64, rng *rand.Rand) float64 {
	switch c := m.(type) {
	case nil:
		return 1
	case Constant:
		return clamp01(float64(c))
	}
	noise := func() float64 { return rng.NormFloat64() * fillerStdDev }
	return clamp01(m.Score(BuildFeatures(candidate, failedCount, elapsed, noise)))
}

type dense struct {
	in, out int
	w       []float64 // out rows of in weights
	b       []float64
}

func newDense(in, out int, rng *rand.Rand) dense {
	bound := 1 / math.Sqrt(float64(in))
	d := dense{in: in, out: out, w: make([]float64, in*out), b: make([]float64, out)}
	for i := range d.w {
		d.w[i] = (rng.Float64()*2 - 1) * bound
	}
	for i := range d.b {
		d.b[i] = (rng.Float64()*2 - 1) * bound
	}
	return d
}

func (d dense) forward(x, y []float64, relu bool) {
	for o := 0; o < d.out; o++ {
		sum := d.b[o]
		row := d.w[o*d.in : (o+1)*d.in]
		for i, v := range x {
			sum += row[i] * v
		}
		if relu && sum < 0 {
			sum = 0
		}
		y[o] = sum
	}
}

// NeuralModel is an actor network 32-128-128-2 with ReLU hidden layers and a
// softmax head. Its weights are drawn from a seed and never trained, so it
// acts as a reproducible pseudo-random modulation of the deterministic
// factors. It returns the probability of the propagate action.
type NeuralModel struct {
	l1, l2, l3 dense
}

// NewNeuralModel initialises the network from seed.
func NewNeuralModel(seed uint64) *NeuralModel {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &NeuralModel{
		l1: newDense(FeatureWidth, hiddenWidth, rng),
		l2: newDense(hiddenWidth, hiddenWidth, rng),
		l3: newDense(hiddenWidth, 2, rng),
	}
}

// Score implements LearnedModel.
func (m *NeuralModel) Score(f Features) float64 {
	var h1, h2 [hiddenWidth]float64
	var logits [2]float64
	m.l1.forward(f[:], h1[:], true)
	m.l2.forward(h1[:], h2[:], true)
	m.l3.forward(h2[:], logits[:], false)

	// softmax over two logits
	hi := math.Max(logits[0], logits[1])
	e0 := math.Exp(logits[0] - hi)
	e1 := math.Exp(logits[1] - hi)
	p := [2]float64{e0 / (e0 + e1), e1 / (e0 + e1)}
	return p[propagateActionSlot]
}

// Model kinds accepted by NewModel.
const (
	KindConstant = "constant"
	KindNeural   = "neural"
)

// NewModel builds the learned model named by kind. An empty kind selects a
// constant 1.
func NewModel(kind string, seed uint64, constant float64) (LearnedModel, error) {
	switch kind {
	case "":
		return Constant(1), nil
	case KindConstant:
		if constant < 0 || constant > 1 {
			return nil, fmt.Errorf("constant model factor %v outside [0,1]", constant)
		}
		return Constant(constant), nil
	case KindNeural:
		return NewNeuralModel(seed), nil
	}
	return nil, fmt.Errorf("unknown model kind %q", kind)
}
