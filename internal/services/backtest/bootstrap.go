package backtest

import (
	"math/rand"
	"sort"
)

// BootstrapVaR estimates 95% value-at-risk of the strategy's total P&L by
// resampling the per-trade P&L series with replacement. Each resample draws
// len(pnls) trades and sums them; var95 is the negated 5th percentile of the
// resampled sums. Deterministic for a given rng state.
func BootstrapVaR(pnls []float64, samples int, rng *rand.Rand) float64 {
	if len(pnls) == 0 || samples <= 0 {
		return 0
	}
	sums := make([]float64, samples)
	for k := range sums {
		total := 0.0
		for range pnls {
			total += pnls[rng.Intn(len(pnls))]
		}
		sums[k] = total
	}
	sort.Float64s(sums)
	return -percentile(sums, 0.05)
}

// percentile returns the p-quantile of sorted values using nearest-rank.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
