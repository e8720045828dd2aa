package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateAccepts(t *testing.T) {
	e := NewRiskRewardEvaluator(EvaluatorConfig{})

	v := e.Evaluate(3.2, 0.654)

	want := 0.5*100*(1-math.Exp(-3.2)) + 0.5*65.4
	assert.True(t, v.Accept)
	assert.InDelta(t, want, v.QualityScore, 1e-9)
	assert.Greater(t, v.QualityScore, 80.0)
}

func TestEvaluateRejectsLowRatio(t *testing.T) {
	e := NewRiskRewardEvaluator(EvaluatorConfig{})

	// High win rate cannot rescue a ratio under the hard floor.
	v := e.Evaluate(1.2, 0.9)
	assert.False(t, v.Accept)
	assert.Contains(t, v.Reason, "ratio")
}

func TestEvaluateRejectsLowQuality(t *testing.T) {
	e := NewRiskRewardEvaluator(EvaluatorConfig{})

	// Ratio clears the floor but a poor win rate drags quality under 60:
	// 0.5*norm(1.6) + 0.5*10 = 0.5*79.8 + 5 = 44.9.
	v := e.Evaluate(1.6, 0.10)
	assert.False(t, v.Accept)
	assert.Contains(t, v.Reason, "quality")
}

func TestEvaluateClampsWinRate(t *testing.T) {
	e := NewRiskRewardEvaluator(EvaluatorConfig{})

	v := e.Evaluate(2.0, 1.7)
	assert.Equal(t, 1.0, v.WinRate)

	v = e.Evaluate(2.0, -0.3)
	assert.Equal(t, 0.0, v.WinRate)
}

func TestNormalizeRatio(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeRatio(0))
	assert.Equal(t, 0.0, NormalizeRatio(-1))
	assert.Equal(t, 100.0, NormalizeRatio(5))
	assert.Equal(t, 100.0, NormalizeRatio(42))

	// Monotone on (0, 5).
	prev := 0.0
	for r := 0.1; r < 5; r += 0.1 {
		cur := NormalizeRatio(r)
		assert.Greater(t, cur, prev)
		assert.Less(t, cur, 100.0)
		prev = cur
	}
}
