// Package quality defines the quality-gating data model: assessment
// dimensions, per-department scoring weights, and the threshold policy
// that turns scores into accept/retry/reject decisions.
package quality

import (
	"time"

	"github.com/vennbeck/showrunner/core/departments"
)

// Dimensions holds the six assessment dimensions, each in [0,100].
// Creativity is populated only for creative departments and Technical
// only for technical ones; an unused dimension stays 0 and its weight
// is 0, so it never contributes to the overall score.
type Dimensions struct {
	Confidence   float64 `json:"confidence"`
	Completeness float64 `json:"completeness"`
	Relevance    float64 `json:"relevance"`
	Consistency  float64 `json:"consistency"`
	Creativity   float64 `json:"creativity"`
	Technical    float64 `json:"technical"`
}

// Clamp returns a copy with every dimension clamped into [0,100].
func (d Dimensions) Clamp() Dimensions {
	return Dimensions{
		Confidence:   ClampScore(d.Confidence),
		Completeness: ClampScore(d.Completeness),
		Relevance:    ClampScore(d.Relevance),
		Consistency:  ClampScore(d.Consistency),
		Creativity:   ClampScore(d.Creativity),
		Technical:    ClampScore(d.Technical),
	}
}

// vector returns the dimensions in canonical order for dot products.
func (d Dimensions) vector() []float64 {
	return []float64{d.Confidence, d.Completeness, d.Relevance, d.Consistency, d.Creativity, d.Technical}
}

// ClampScore clamps a dimension or overall score into [0,100].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampUnit clamps a value into [0,1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Assessment is the immutable result of one scoring operation. It is
// created by the scorer, never mutated afterward, and may be cached by
// a fingerprint of (content, department, context).
type Assessment struct {
	Department departments.ID `json:"department"`
	Level      Level          `json:"level"`

	Dimensions   Dimensions `json:"dimensions"`
	OverallScore float64    `json:"overall_score"`
	Decision     Decision   `json:"decision"`

	// Confidence is the scorer's self-reported certainty in [0,1],
	// distinct from the confidence dimension.
	Confidence float64 `json:"confidence"`

	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Reasoning   string   `json:"reasoning,omitempty"`

	AssessedAt time.Time `json:"assessed_at"`

	// Model is the model that produced the grading, for audit.
	Model string `json:"model,omitempty"`
}
