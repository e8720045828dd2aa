package engine

import (
	"iter"
	"math"

	"SentiTrade/internal/domain/models"
)

// DivergenceConfig holds the detection thresholds. Price moves are percent,
// sentiment moves are points on the 0-100 scale.
type DivergenceConfig struct {
	PriceMovePct     float64 // magnitude a price move must exceed (default 2.0)
	SentimentMovePts float64 // magnitude a sentiment move must exceed (default 5.0)
	ReversalBase     float64 // base reversal probability (default 50)
	ReversalSlope    float64 // probability points per sentiment point (default 2.0)
}

func (c DivergenceConfig) withDefaults() DivergenceConfig {
	if c.PriceMovePct == 0 {
		c.PriceMovePct = 2.0
	}
	if c.SentimentMovePts == 0 {
		c.SentimentMovePts = 5.0
	}
	if c.ReversalBase == 0 {
		c.ReversalBase = 50
	}
	if c.ReversalSlope == 0 {
		c.ReversalSlope = 2.0
	}
	return c
}

// DivergenceDetector finds points where price and sentiment move sharply in
// opposite directions over one step of an aligned series pair.
type DivergenceDetector struct {
	cfg DivergenceConfig
}

// NewDivergenceDetector builds a detector, filling zero thresholds with
// defaults.
func NewDivergenceDetector(cfg DivergenceConfig) *DivergenceDetector {
	return &DivergenceDetector{cfg: cfg.withDefaults()}
}

// Detect validates the inputs and returns all divergence events in order.
// Fewer than 3 aligned points is an insufficient-data error.
func (d *DivergenceDetector) Detect(prices []models.PricePoint, sentiment []models.SentimentPoint) ([]models.DivergenceEvent, error) {
	n := min(len(prices), len(sentiment))
	if n < 3 {
		return nil, E(KindInsufficientData, "divergence.detect", "need at least 3 aligned points, got %d", n)
	}
	var out []models.DivergenceEvent
	for ev := range d.Scan(prices[:n], sentiment[:n]) {
		out = append(out, ev)
	}
	return out, nil
}

// Scan lazily yields divergence events over already-aligned series. Indexes
// with NaN on either side of the step are skipped, so no event ever carries
// a NaN field.
func (d *DivergenceDetector) Scan(prices []models.PricePoint, sentiment []models.SentimentPoint) iter.Seq[models.DivergenceEvent] {
	cfg := d.cfg
	return func(yield func(models.DivergenceEvent) bool) {
		n := min(len(prices), len(sentiment))
		for i := 1; i < n; i++ {
			p0, p1 := prices[i-1].Value, prices[i].Value
			s0, s1 := sentiment[i-1].Score, sentiment[i].Score
			if math.IsNaN(p0) || math.IsNaN(p1) || math.IsNaN(s0) || math.IsNaN(s1) {
				continue
			}
			if p0 == 0 {
				continue
			}
			pricePct := (p1 - p0) / p0 * 100
			sentPts := s1 - s0

			var kind models.DivergenceKind
			switch {
			case pricePct < -cfg.PriceMovePct && sentPts > cfg.SentimentMovePts:
				kind = models.DivergenceBullish
			case pricePct > cfg.PriceMovePct && sentPts < -cfg.SentimentMovePts:
				kind = models.DivergenceBearish
			default:
				continue
			}

			ev := models.DivergenceEvent{
				Index:               i,
				Timestamp:           prices[i].Timestamp,
				Kind:                kind,
				PriceChangePct:      pricePct,
				SentimentChangePts:  sentPts,
				ReversalProbability: reversalProbability(cfg, sentPts),
			}
			if !yield(ev) {
				return
			}
		}
	}
}

func reversalProbability(cfg DivergenceConfig, sentPts float64) float64 {
	p := cfg.ReversalBase + cfg.ReversalSlope*math.Abs(sentPts)
	return math.Min(95, p)
}
