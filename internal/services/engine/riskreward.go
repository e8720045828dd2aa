package engine

import (
	"fmt"
	"math"

	"SentiTrade/internal/domain/models"
)

// EvaluatorConfig weights the quality score and sets acceptance floors.
type EvaluatorConfig struct {
	RatioWeight   float64 // weight of the normalized ratio term (default 0.5)
	WinRateWeight float64 // weight of the win-rate term (default 0.5)
	MinQuality    float64 // acceptance floor for the quality score (default 60)
	MinRatio      float64 // hard floor on the raw ratio (default 1.5)
}

func (c EvaluatorConfig) withDefaults() EvaluatorConfig {
	if c.RatioWeight == 0 {
		c.RatioWeight = 0.5
	}
	if c.WinRateWeight == 0 {
		c.WinRateWeight = 0.5
	}
	if c.MinQuality == 0 {
		c.MinQuality = 60
	}
	if c.MinRatio == 0 {
		c.MinRatio = 1.5
	}
	return c
}

// RiskRewardEvaluator scores a sized position against historical win rate and
// decides acceptance.
type RiskRewardEvaluator struct {
	cfg EvaluatorConfig
}

func NewRiskRewardEvaluator(cfg EvaluatorConfig) *RiskRewardEvaluator {
	return &RiskRewardEvaluator{cfg: cfg.withDefaults()}
}

// Evaluate scores ratio (raw risk/reward) against winRate (fraction in [0,1]).
func (e *RiskRewardEvaluator) Evaluate(ratio, winRate float64) models.Verdict {
	winRate = clamp01(winRate)
	quality := e.cfg.RatioWeight*NormalizeRatio(ratio) + e.cfg.WinRateWeight*(winRate*100)

	v := models.Verdict{
		QualityScore: quality,
		Ratio:        ratio,
		WinRate:      winRate,
	}
	switch {
	case ratio < e.cfg.MinRatio:
		v.Reason = fmt.Sprintf("ratio %.2f below floor %.2f", ratio, e.cfg.MinRatio)
	case quality < e.cfg.MinQuality:
		v.Reason = fmt.Sprintf("quality %.1f below floor %.1f", quality, e.cfg.MinQuality)
	default:
		v.Accept = true
		v.Reason = fmt.Sprintf("quality %.1f, ratio %.2f", quality, ratio)
	}
	return v
}

// NormalizeRatio maps a risk/reward ratio to a 0-100 score. Monotone, and
// saturates at exactly 100 for ratios of 5 and above.
func NormalizeRatio(r float64) float64 {
	if r <= 0 {
		return 0
	}
	if r >= 5 {
		return 100
	}
	return 100 * (1 - math.Exp(-r))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
