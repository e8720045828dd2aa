package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentiTrade/internal/domain/models"
)

func mkSeries(prices []float64, scores []float64) ([]models.PricePoint, []models.SentimentPoint) {
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	pp := make([]models.PricePoint, len(prices))
	sp := make([]models.SentimentPoint, len(scores))
	for i, v := range prices {
		pp[i] = models.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Value: v}
	}
	for i, v := range scores {
		sp[i] = models.SentimentPoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Score: v, TrustedSources: 3}
	}
	return pp, sp
}

func TestDetectBullishDivergence(t *testing.T) {
	d := NewDivergenceDetector(DivergenceConfig{})
	// -2.5% price step with +8 pts sentiment step at index 2
	pp, sp := mkSeries([]float64{100, 100, 97.5}, []float64{50, 50, 58})

	events, err := d.Detect(pp, sp)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, models.DivergenceBullish, ev.Kind)
	assert.Equal(t, 2, ev.Index)
	assert.InDelta(t, -2.5, ev.PriceChangePct, 1e-9)
	assert.InDelta(t, 8.0, ev.SentimentChangePts, 1e-9)
	assert.InDelta(t, 66.0, ev.ReversalProbability, 1e-9) // 50 + 2*8
}

func TestDetectBearishDivergence(t *testing.T) {
	d := NewDivergenceDetector(DivergenceConfig{})
	pp, sp := mkSeries([]float64{100, 103, 103}, []float64{60, 52, 52})

	events, err := d.Detect(pp, sp)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.DivergenceBearish, events[0].Kind)
	assert.Equal(t, 1, events[0].Index)
}

func TestDetectThresholdsAreStrict(t *testing.T) {
	d := NewDivergenceDetector(DivergenceConfig{})
	// Exactly -2% and exactly +5 pts must not fire.
	pp, sp := mkSeries([]float64{100, 98, 98}, []float64{50, 55, 55})

	events, err := d.Detect(pp, sp)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDetectInsufficientData(t *testing.T) {
	d := NewDivergenceDetector(DivergenceConfig{})
	pp, sp := mkSeries([]float64{100, 97}, []float64{50, 58})

	_, err := d.Detect(pp, sp)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInsufficientData))
}

func TestDetectSkipsNaN(t *testing.T) {
	d := NewDivergenceDetector(DivergenceConfig{})
	pp, sp := mkSeries([]float64{100, math.NaN(), 97.5, 95.0}, []float64{50, 58, 66, 74})

	events, err := d.Detect(pp, sp)
	require.NoError(t, err)
	// Steps touching the NaN price are skipped; only index 3 can fire.
	for _, ev := range events {
		assert.False(t, math.IsNaN(ev.PriceChangePct))
		assert.False(t, math.IsNaN(ev.ReversalProbability))
		assert.GreaterOrEqual(t, ev.Index, 3)
	}
}

func TestReversalProbabilityCap(t *testing.T) {
	d := NewDivergenceDetector(DivergenceConfig{})
	// +40 pts sentiment would give 50 + 80 = 130 uncapped.
	pp, sp := mkSeries([]float64{100, 100, 96}, []float64{20, 20, 60})

	events, err := d.Detect(pp, sp)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 95.0, events[0].ReversalProbability)
}

func TestScanIsLazy(t *testing.T) {
	d := NewDivergenceDetector(DivergenceConfig{})
	pp, sp := mkSeries(
		[]float64{100, 97, 94, 91, 88},
		[]float64{40, 48, 56, 64, 72},
	)

	count := 0
	for range d.Scan(pp, sp) {
		count++
		break // early stop must not panic or leak
	}
	assert.Equal(t, 1, count)
}
