package service

import (
	"context"

	"SentiTrade/internal/domain/models"
)

// DivergenceDetector finds price/sentiment divergences in aligned series.
type DivergenceDetector interface {
	Detect(prices []models.PricePoint, sentiment []models.SentimentPoint) ([]models.DivergenceEvent, error)
}

// PositionSizer turns a candidate trade into a sized position plan.
type PositionSizer interface {
	Size(portfolioValueUSD, entry, stop, target, confidence, volatility float64) (*models.PositionPlan, error)
}

// TradeEvaluator scores a sized position against historical performance.
type TradeEvaluator interface {
	Evaluate(ratio, winRate float64) models.Verdict
}

// PatternScanner recognizes named price/sentiment patterns over a rolling
// window and reports the window correlation.
type PatternScanner interface {
	Scan(prices []models.PricePoint, sentiment []models.SentimentPoint) ([]models.PatternHit, float64)
}

// WhaleSource reports large-holder conviction for an asset. Implementations
// are best-effort; an unavailable source must degrade to a zero conviction.
type WhaleSource interface {
	Conviction(ctx context.Context, asset string) (float64, error)
}
