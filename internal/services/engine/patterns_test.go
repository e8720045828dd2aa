package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SentiTrade/internal/domain/models"
)

func TestScanEuphoricTop(t *testing.T) {
	s := NewPatternScanner(50)
	// Sentiment climbing above 75 while price goes nowhere.
	pp, sp := mkSeries(
		[]float64{100, 100.2, 99.9, 100.1, 100.0, 99.8},
		[]float64{70, 74, 78, 80, 82, 85},
	)

	hits, _ := s.Scan(pp, sp)
	assert.True(t, hasPattern(hits, PatternEuphoricTop), "hits: %v", hits)
}

func TestScanPanicBottom(t *testing.T) {
	s := NewPatternScanner(50)
	pp, sp := mkSeries(
		[]float64{100, 100.1, 99.9, 100.0, 100.2},
		[]float64{30, 26, 22, 20, 18},
	)

	hits, _ := s.Scan(pp, sp)
	assert.True(t, hasPattern(hits, PatternPanicBottom), "hits: %v", hits)
}

func TestScanSilentAccumulation(t *testing.T) {
	s := NewPatternScanner(50)
	pp, sp := mkSeries(
		[]float64{100, 101, 102, 103, 104},
		[]float64{38, 37, 36, 35, 34},
	)

	hits, _ := s.Scan(pp, sp)
	assert.True(t, hasPattern(hits, PatternSilentAccumulation), "hits: %v", hits)
}

func TestScanCorrelationSign(t *testing.T) {
	s := NewPatternScanner(50)

	// Perfectly co-moving series.
	pp, sp := mkSeries(
		[]float64{100, 101, 102, 103, 104, 105},
		[]float64{50, 52, 54, 56, 58, 60},
	)
	_, corr := s.Scan(pp, sp)
	assert.InDelta(t, 1.0, corr, 1e-9)

	// Perfectly opposed series.
	pp, sp = mkSeries(
		[]float64{100, 101, 102, 103, 104, 105},
		[]float64{60, 58, 56, 54, 52, 50},
	)
	_, corr = s.Scan(pp, sp)
	assert.InDelta(t, -1.0, corr, 1e-9)
}

func TestScanShortWindow(t *testing.T) {
	s := NewPatternScanner(50)
	pp, sp := mkSeries([]float64{100, 101}, []float64{50, 51})

	hits, corr := s.Scan(pp, sp)
	assert.Empty(t, hits)
	assert.Equal(t, 0.0, corr)
}

func hasPattern(hits []models.PatternHit, name string) bool {
	for _, h := range hits {
		if h.Name == name {
			return true
		}
	}
	return false
}
