package quality

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/vennbeck/showrunner/core/departments"
)

// Weights assigns one weight in [0,1] per dimension. For any
// department the weights sum to 1.0 within WeightSumTolerance.
type Weights struct {
	Confidence   float64 `json:"confidence" yaml:"confidence"`
	Completeness float64 `json:"completeness" yaml:"completeness"`
	Relevance    float64 `json:"relevance" yaml:"relevance"`
	Consistency  float64 `json:"consistency" yaml:"consistency"`
	Creativity   float64 `json:"creativity" yaml:"creativity"`
	Technical    float64 `json:"technical" yaml:"technical"`
}

// WeightSumTolerance is the allowed deviation of a weight row from 1.0.
const WeightSumTolerance = 0.01

func (w Weights) vector() []float64 {
	return []float64{w.Confidence, w.Completeness, w.Relevance, w.Consistency, w.Creativity, w.Technical}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return floats.Sum(w.vector())
}

// Valid reports whether the weights sum to 1.0 within tolerance.
func (w Weights) Valid() bool {
	return math.Abs(w.Sum()-1.0) <= WeightSumTolerance
}

// Balanced returns the equal-weight fallback over the four dimensions
// every department is assessed on. Used for unknown departments.
func Balanced() Weights {
	return Weights{
		Confidence:   0.25,
		Completeness: 0.25,
		Relevance:    0.25,
		Consistency:  0.25,
	}
}

// weightTable holds the per-department weight rows. Creative rows weight
// creativity and consistency heavily; technical rows put the technical
// dimension above creativity; research weights completeness and
// consistency as a verification department.
var weightTable = map[departments.ID]Weights{
	departments.Story: {
		Confidence: 0.10, Completeness: 0.20, Relevance: 0.15,
		Consistency: 0.25, Creativity: 0.30,
	},
	departments.Character: {
		Confidence: 0.10, Completeness: 0.20, Relevance: 0.15,
		Consistency: 0.30, Creativity: 0.25,
	},
	departments.Visual: {
		Confidence: 0.10, Completeness: 0.15, Relevance: 0.15,
		Consistency: 0.25, Creativity: 0.35,
	},
	departments.Audio: {
		Confidence: 0.10, Completeness: 0.20, Relevance: 0.15,
		Consistency: 0.20, Technical: 0.35,
	},
	departments.Video: {
		Confidence: 0.10, Completeness: 0.15, Relevance: 0.15,
		Consistency: 0.20, Technical: 0.40,
	},
	departments.Research: {
		Confidence: 0.15, Completeness: 0.30, Relevance: 0.25,
		Consistency: 0.30,
	},
}

// WeightsFor returns the weight row for a department, case-insensitive,
// falling back to the balanced row for departments the table does not
// know.
func WeightsFor(id departments.ID) Weights {
	if w, ok := weightTable[departments.Normalize(id)]; ok {
		return w
	}
	return Balanced()
}

// WeightedScore computes the dot product of dimensions and weights.
// A dimension absent from the input contributes 0, and a completely
// empty dimension set scores 0; partial assessments are permitted.
func WeightedScore(dims Dimensions, w Weights) float64 {
	return floats.Dot(dims.vector(), w.vector())
}
