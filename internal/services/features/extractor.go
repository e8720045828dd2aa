package features

import (
	"math"
	"time"

	"SentiTrade/internal/domain/models"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over a rolling window
// using the provided number of bars per year. Returns the latest window sigma.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	// annualize
	return math.Sqrt(variance * barsPerYear)
}

// PctVolatility is the standard deviation of step-to-step percent changes
// over the trailing window of a price point series. NaN points are skipped.
// Used as the unitless volatility input to position sizing.
func PctVolatility(prices []models.PricePoint, window int) float64 {
	n := len(prices)
	if n < 3 {
		return 0
	}
	if window > 0 && n > window+1 {
		prices = prices[n-window-1:]
		n = len(prices)
	}
	rets := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		prev, cur := prices[i-1].Value, prices[i].Value
		if prev <= 0 || math.IsNaN(prev) || math.IsNaN(cur) {
			continue
		}
		rets = append(rets, (cur-prev)/prev*100)
	}
	if len(rets) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	varSum := 0.0
	for _, r := range rets {
		d := r - mean
		varSum += d * d
	}
	return math.Sqrt(varSum / float64(len(rets)-1))
}

// BarsPerYearForTF returns the approximate number of bars per year for a timeframe.
func BarsPerYearForTF(tf string) float64 {
	switch tf {
	case "1m":
		return 365 * 24 * 60
	case "5m":
		return 365 * 24 * 12
	default:
		return 365 * 24 * 60
	}
}

// AlignFromTo rounds time range to candle boundaries based on timeframe.
func AlignFromTo(from, to time.Time, tf string) (time.Time, time.Time) {
	switch tf {
	case "5m":
		d := time.Duration(5) * time.Minute
		from = from.Truncate(d)
		to = to.Truncate(d)
	default:
		from = from.Truncate(time.Minute)
		to = to.Truncate(time.Minute)
	}
	return from, to
}
