package quality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vennbeck/showrunner/core/departments"
	"github.com/vennbeck/showrunner/core/quality"
)

func TestWeightRowsSumToOne(t *testing.T) {
	for _, id := range departments.IDs() {
		w := quality.WeightsFor(id)
		assert.True(t, w.Valid(), "weights for %s sum to %f", id, w.Sum())
	}
	assert.True(t, quality.Balanced().Valid())
}

func TestWeightsForUnknownFallsBackToBalanced(t *testing.T) {
	assert.Equal(t, quality.Balanced(), quality.WeightsFor("catering"))
}

func TestWeightsForIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, quality.WeightsFor(departments.Story), quality.WeightsFor("Story"))
}

func TestCreativeWeightsFavorCreativity(t *testing.T) {
	for _, id := range []departments.ID{departments.Story, departments.Character, departments.Visual} {
		w := quality.WeightsFor(id)
		assert.Greater(t, w.Creativity, w.Technical, "creative department %s", id)
		assert.Zero(t, w.Technical, "creative department %s weights technical", id)
	}
}

func TestTechnicalWeightsFavorTechnical(t *testing.T) {
	for _, id := range []departments.ID{departments.Audio, departments.Video} {
		w := quality.WeightsFor(id)
		assert.Greater(t, w.Technical, w.Creativity, "technical department %s", id)
		assert.Zero(t, w.Creativity, "technical department %s weights creativity", id)
	}
}

func TestWeightedScore(t *testing.T) {
	dims := quality.Dimensions{
		Confidence:   80,
		Completeness: 80,
		Relevance:    80,
		Consistency:  80,
	}
	score := quality.WeightedScore(dims, quality.Balanced())
	assert.InDelta(t, 80.0, score, 1e-9)
}

func TestWeightedScoreEmptyDimensionsIsZero(t *testing.T) {
	assert.Zero(t, quality.WeightedScore(quality.Dimensions{}, quality.WeightsFor(departments.Story)))
}

func TestWeightedScoreIgnoresUnweightedDimensions(t *testing.T) {
	// Story weights technical at 0: a technical score must not move the result.
	base := quality.Dimensions{Confidence: 70, Completeness: 70, Relevance: 70, Consistency: 70, Creativity: 70}
	withTech := base
	withTech.Technical = 100

	w := quality.WeightsFor(departments.Story)
	require.Equal(t, quality.WeightedScore(base, w), quality.WeightedScore(withTech, w))
}

func TestClampScore(t *testing.T) {
	for _, v := range []float64{-50, -0.001, 0, 12.5, 100, 150} {
		clamped := quality.ClampScore(v)
		assert.GreaterOrEqual(t, clamped, 0.0)
		assert.LessOrEqual(t, clamped, 100.0)
		if v >= 0 && v <= 100 {
			assert.Equal(t, v, clamped)
		}
	}
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 0.0, quality.ClampUnit(-0.2))
	assert.Equal(t, 1.0, quality.ClampUnit(1.5))
	assert.Equal(t, 0.42, quality.ClampUnit(0.42))
}

func TestDimensionsClamp(t *testing.T) {
	d := quality.Dimensions{Confidence: -10, Completeness: 250, Relevance: 55}.Clamp()
	assert.Equal(t, 0.0, d.Confidence)
	assert.Equal(t, 100.0, d.Completeness)
	assert.Equal(t, 55.0, d.Relevance)
}
