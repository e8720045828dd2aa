package engine

import (
	"math"

	"SentiTrade/internal/domain/models"
)

// Position quality labels by risk/reward ratio.
const (
	QualityExcellent = "Excellent"
	QualityGood      = "Good"
	QualityFair      = "Fair"
	QualityPoor      = "Poor"
)

// SizerConfig holds position-sizing knobs.
type SizerConfig struct {
	RiskPct        float64 // percent of portfolio risked per trade (default 2)
	MaxPositionPct float64 // notional ceiling as percent of portfolio (default 25)
}

func (c SizerConfig) withDefaults() SizerConfig {
	if c.RiskPct == 0 {
		c.RiskPct = 2.0
	}
	if c.MaxPositionPct == 0 {
		c.MaxPositionPct = 25.0
	}
	return c
}

// KellySizer sizes positions from a fixed risk budget, scaled down by
// confidence and volatility and capped by a portfolio-share ceiling.
type KellySizer struct {
	cfg SizerConfig
}

func NewKellySizer(cfg SizerConfig) *KellySizer {
	return &KellySizer{cfg: cfg.withDefaults()}
}

// Size computes the position plan for a candidate trade. Confidence is 0-100,
// volatility is a non-negative unitless estimate.
func (s *KellySizer) Size(portfolioValueUSD, entry, stop, target, confidence, volatility float64) (*models.PositionPlan, error) {
	const op = "kelly.size"
	if portfolioValueUSD <= 0 {
		return nil, E(KindInvalidRiskParameters, op, "portfolio value must be positive, got %v", portfolioValueUSD)
	}
	if entry <= 0 {
		return nil, E(KindInvalidRiskParameters, op, "entry price must be positive, got %v", entry)
	}
	perUnitRisk := math.Abs(entry - stop)
	if perUnitRisk == 0 {
		return nil, E(KindInvalidRiskParameters, op, "entry and stop coincide at %v", entry)
	}
	if confidence < 0 || confidence > 100 {
		return nil, E(KindInvalidRiskParameters, op, "confidence must be in [0,100], got %v", confidence)
	}
	if volatility < 0 {
		return nil, E(KindInvalidRiskParameters, op, "volatility must be non-negative, got %v", volatility)
	}

	budget := portfolioValueUSD * s.cfg.RiskPct / 100
	rawQty := budget / perUnitRisk
	qty := rawQty * (confidence / 100) / (1 + volatility/10)

	// Notional ceiling: recompute quantity from the cap on breach.
	ceiling := s.cfg.MaxPositionPct / 100 * portfolioValueUSD
	if qty*entry > ceiling {
		qty = ceiling / entry
	}

	maxLoss := qty * perUnitRisk
	maxGain := qty * math.Abs(target-entry)
	ratio := 0.0
	if maxLoss > 0 {
		ratio = maxGain / maxLoss
	}

	return &models.PositionPlan{
		Quantity:         qty,
		EntryPrice:       entry,
		StopLoss:         stop,
		TakeProfit:       target,
		RiskBudgetUSD:    budget,
		MaxLossUSD:       maxLoss,
		MaxGainUSD:       maxGain,
		PositionValueUSD: qty * entry,
		PortfolioPct:     qty * entry / portfolioValueUSD * 100,
		RiskRewardRatio:  ratio,
		Quality:          qualityLabel(ratio),
	}, nil
}

func qualityLabel(ratio float64) string {
	switch {
	case ratio >= 3:
		return QualityExcellent
	case ratio >= 2:
		return QualityGood
	case ratio >= 1:
		return QualityFair
	default:
		return QualityPoor
	}
}
