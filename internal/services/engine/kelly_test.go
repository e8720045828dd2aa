package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeScalesByConfidenceAndVolatility(t *testing.T) {
	s := NewKellySizer(SizerConfig{RiskPct: 2, MaxPositionPct: 50})

	plan, err := s.Size(10000, 100, 95, 110, 90, 1.0)
	require.NoError(t, err)

	// budget 200, per-unit risk 5, raw 40, scaled 40 * 0.9 / 1.1
	assert.InDelta(t, 200.0, plan.RiskBudgetUSD, 1e-9)
	assert.InDelta(t, 40*0.9/1.1, plan.Quantity, 1e-9)
	assert.InDelta(t, plan.Quantity*5, plan.MaxLossUSD, 1e-9)
	assert.InDelta(t, plan.Quantity*10, plan.MaxGainUSD, 1e-9)
	assert.InDelta(t, 2.0, plan.RiskRewardRatio, 1e-9)
	assert.Equal(t, QualityGood, plan.Quality)
}

func TestSizeAppliesNotionalCeiling(t *testing.T) {
	s := NewKellySizer(SizerConfig{RiskPct: 2, MaxPositionPct: 25})

	plan, err := s.Size(10000, 100, 95, 110, 90, 1.0)
	require.NoError(t, err)

	// Unconstrained quantity would be 32.7 units (3270 USD notional),
	// the 25% ceiling recomputes it from 2500 USD.
	assert.InDelta(t, 25.0, plan.Quantity, 1e-9)
	assert.InDelta(t, 2500.0, plan.PositionValueUSD, 1e-9)
	assert.InDelta(t, 25.0, plan.PortfolioPct, 1e-9)
	assert.InDelta(t, 125.0, plan.MaxLossUSD, 1e-9)
	// Ratio is invariant under the quantity rescale.
	assert.InDelta(t, 2.0, plan.RiskRewardRatio, 1e-9)
}

func TestSizeQualityLabels(t *testing.T) {
	s := NewKellySizer(SizerConfig{RiskPct: 2, MaxPositionPct: 100})

	cases := []struct {
		target  float64
		quality string
	}{
		{entryTarget(100, 5, 3.5), QualityExcellent},
		{entryTarget(100, 5, 2.0), QualityGood},
		{entryTarget(100, 5, 1.2), QualityFair},
		{entryTarget(100, 5, 0.5), QualityPoor},
	}
	for _, c := range cases {
		plan, err := s.Size(10000, 100, 95, c.target, 80, 0)
		require.NoError(t, err)
		assert.Equal(t, c.quality, plan.Quality, "target %v", c.target)
	}
}

// entryTarget places the target so the resulting ratio equals r for a long
// with per-unit risk perUnit.
func entryTarget(entry, perUnit, r float64) float64 {
	return entry + perUnit*r
}

func TestSizeRejectsDegenerateInputs(t *testing.T) {
	s := NewKellySizer(SizerConfig{})

	_, err := s.Size(10000, 100, 100, 110, 90, 1) // stop == entry
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidRiskParameters))

	_, err = s.Size(0, 100, 95, 110, 90, 1)
	assert.True(t, IsKind(err, KindInvalidRiskParameters))

	_, err = s.Size(10000, -5, 95, 110, 90, 1)
	assert.True(t, IsKind(err, KindInvalidRiskParameters))

	_, err = s.Size(10000, 100, 95, 110, 150, 1)
	assert.True(t, IsKind(err, KindInvalidRiskParameters))

	_, err = s.Size(10000, 100, 95, 110, 90, -2)
	assert.True(t, IsKind(err, KindInvalidRiskParameters))
}

func TestSizeZeroVolatilityFullConfidence(t *testing.T) {
	s := NewKellySizer(SizerConfig{RiskPct: 2, MaxPositionPct: 100})

	plan, err := s.Size(10000, 100, 95, 110, 100, 0)
	require.NoError(t, err)
	// No scaling: quantity equals the raw budget quantity.
	assert.InDelta(t, 40.0, plan.Quantity, 1e-9)
	assert.InDelta(t, 200.0, plan.MaxLossUSD, 1e-9)
}
