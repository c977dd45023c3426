package quality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vennbeck/showrunner/core/quality"
)

func TestDecideSpecialistBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		score       float64
		consistency float64
		want        quality.Decision
	}{
		{"below minimum rejects regardless of consistency", 50, 80, quality.DecisionReject},
		{"below acceptable retries", 65, 80, quality.DecisionRetry},
		{"acceptable with ok consistency accepts", 80, 80, quality.DecisionAccept},
		{"good score and good consistency is exemplary", 92, 90, quality.DecisionExemplary},
		{"inconsistent content never passes on score alone", 80, 60, quality.DecisionRetry},
		{"reject beats inconsistency", 40, 10, quality.DecisionReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quality.Decide(tt.score, tt.consistency, quality.LevelSpecialist))
		})
	}
}

func TestLowConsistencyBlocksExemplary(t *testing.T) {
	got := quality.Decide(95, 70, quality.LevelSpecialist)
	assert.NotEqual(t, quality.DecisionExemplary, got)
	assert.Equal(t, quality.DecisionAccept, got)
}

// Increasing the score at fixed consistency must never regress to a
// more severe decision.
func TestDecideMonotonicInScore(t *testing.T) {
	for _, level := range []quality.Level{quality.LevelSpecialist, quality.LevelDepartment, quality.LevelOverall} {
		consistency := quality.ThresholdsFor(level).ConsistencyGood
		prev := quality.Decide(0, consistency, level)
		for score := 1.0; score <= 100; score++ {
			cur := quality.Decide(score, consistency, level)
			require.GreaterOrEqual(t, int(cur), int(prev),
				"level %s: decision regressed from %s to %s at score %f", level, prev, cur, score)
			prev = cur
		}
	}
}

func TestThresholdsStrictlyAscending(t *testing.T) {
	for _, level := range []quality.Level{quality.LevelSpecialist, quality.LevelDepartment, quality.LevelOverall} {
		th := quality.ThresholdsFor(level)
		assert.Less(t, th.Minimum, th.Acceptable, "level %s", level)
		assert.Less(t, th.Acceptable, th.Good, "level %s", level)
		assert.Less(t, th.Good, th.Excellent, "level %s", level)
		assert.Less(t, th.ConsistencyMinimum, th.ConsistencyGood, "level %s", level)
	}
}

func TestRequiresAttention(t *testing.T) {
	assert.True(t, quality.RequiresAttention(50, 80, quality.LevelSpecialist))
	assert.True(t, quality.RequiresAttention(65, 80, quality.LevelSpecialist))
	assert.False(t, quality.RequiresAttention(80, 80, quality.LevelSpecialist))
	assert.False(t, quality.RequiresAttention(92, 90, quality.LevelSpecialist))
}

func TestRecommendedActionCoversEveryDecision(t *testing.T) {
	for _, d := range []quality.Decision{
		quality.DecisionReject, quality.DecisionRetry,
		quality.DecisionAccept, quality.DecisionExemplary,
	} {
		assert.NotEmpty(t, quality.RecommendedAction(d))
		assert.NotEqual(t, "unknown decision", quality.RecommendedAction(d))
	}
}

func TestScoreLabel(t *testing.T) {
	assert.Equal(t, "below minimum", quality.ScoreLabel(30, quality.LevelSpecialist))
	assert.Equal(t, "below acceptable", quality.ScoreLabel(65, quality.LevelSpecialist))
	assert.Equal(t, "acceptable", quality.ScoreLabel(80, quality.LevelSpecialist))
	assert.Equal(t, "good", quality.ScoreLabel(92, quality.LevelSpecialist))
	assert.Equal(t, "excellent", quality.ScoreLabel(98, quality.LevelSpecialist))
}

func TestParseDecision(t *testing.T) {
	d, ok := quality.ParseDecision("exemplary")
	require.True(t, ok)
	assert.Equal(t, quality.DecisionExemplary, d)

	_, ok = quality.ParseDecision("meh")
	assert.False(t, ok)
}

func TestTierDistance(t *testing.T) {
	assert.Equal(t, 0, quality.TierDistance(quality.DecisionAccept, quality.DecisionAccept))
	assert.Equal(t, 1, quality.TierDistance(quality.DecisionAccept, quality.DecisionRetry))
	assert.Equal(t, 3, quality.TierDistance(quality.DecisionReject, quality.DecisionExemplary))
}
