package engine

import (
	"fmt"
	"math"

	"SentiTrade/internal/domain/models"
)

// Named sentiment/price patterns.
const (
	PatternEuphoricTop        = "Euphoric Top"
	PatternSilentAccumulation = "Silent Accumulation"
	PatternPanicBottom        = "Panic Bottom"
	PatternBearishDivergence  = "Bearish Divergence"
)

// PatternScanner recognizes crowd-behavior patterns over a rolling window of
// aligned price and sentiment points.
type PatternScanner struct {
	window int
}

// NewPatternScanner builds a scanner with the given window size (default 50).
func NewPatternScanner(window int) *PatternScanner {
	if window <= 0 {
		window = 50
	}
	return &PatternScanner{window: window}
}

// Scan inspects the trailing window and returns pattern hits plus the Pearson
// correlation between price and sentiment over that window. With fewer than
// 5 aligned points it returns no hits and zero correlation.
func (s *PatternScanner) Scan(prices []models.PricePoint, sentiment []models.SentimentPoint) ([]models.PatternHit, float64) {
	n := min(len(prices), len(sentiment))
	if n < 5 {
		return nil, 0
	}
	if n > s.window {
		prices = prices[n-s.window:]
		sentiment = sentiment[n-s.window:]
		n = s.window
	}

	priceChangePct := changePct(prices[0].Value, prices[n-1].Value)
	lastSent := sentiment[n-1].Score
	corr := pearson(prices, sentiment)

	var hits []models.PatternHit
	add := func(name, detail string) {
		hits = append(hits, models.PatternHit{Name: name, Detail: detail})
	}

	// Crowd euphoric while price stalls: distribution risk.
	if lastSent > 75 && priceChangePct <= 0.5 {
		add(PatternEuphoricTop, fmt.Sprintf("sentiment %.0f with price %+.1f%%", lastSent, priceChangePct))
	}
	// Price grinding up while the crowd is absent.
	if lastSent < 40 && priceChangePct > 1.0 {
		add(PatternSilentAccumulation, fmt.Sprintf("sentiment %.0f with price %+.1f%%", lastSent, priceChangePct))
	}
	// Capitulation sentiment while price stops falling.
	if lastSent < 25 && priceChangePct > -0.5 {
		add(PatternPanicBottom, fmt.Sprintf("sentiment %.0f with price %+.1f%%", lastSent, priceChangePct))
	}
	// Price up, sentiment fading, strongly anti-correlated window.
	if corr < -0.6 && priceChangePct > 0 && sentimentSlope(sentiment) < 0 {
		add(PatternBearishDivergence, fmt.Sprintf("corr %.2f with price %+.1f%%", corr, priceChangePct))
	}

	return hits, corr
}

func changePct(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

func sentimentSlope(sentiment []models.SentimentPoint) float64 {
	n := len(sentiment)
	if n < 2 {
		return 0
	}
	half := n / 2
	return meanScore(sentiment[half:]) - meanScore(sentiment[:half])
}

func meanScore(pts []models.SentimentPoint) float64 {
	if len(pts) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range pts {
		sum += p.Score
	}
	return sum / float64(len(pts))
}

// pearson computes the correlation coefficient between the price values and
// sentiment scores, skipping NaN pairs.
func pearson(prices []models.PricePoint, sentiment []models.SentimentPoint) float64 {
	n := min(len(prices), len(sentiment))
	var xs, ys []float64
	for i := 0; i < n; i++ {
		x, y := prices[i].Value, sentiment[i].Score
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	m := len(xs)
	if m < 2 {
		return 0
	}
	var sumX, sumY float64
	for i := 0; i < m; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/float64(m), sumY/float64(m)
	var cov, varX, varY float64
	for i := 0; i < m; i++ {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
