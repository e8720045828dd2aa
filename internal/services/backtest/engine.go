package backtest

import (
	"context"
	"math"
	"math/rand"
	"time"

	"SentiTrade/internal/domain/models"
	"SentiTrade/internal/services/engine"
	applogger "SentiTrade/pkg/logger"
)

// Config holds one simulation's parameters.
type Config struct {
	PortfolioValueUSD float64
	RiskPct           float64
	MaxPositionPct    float64
	TTLBars           int // bars an open trade may live before forced exit
	BootstrapSamples  int
	Seed              int64
	WallClockBudget   time.Duration
	IncludeTrades     bool
	ProgressEvery     int
	Divergence        engine.DivergenceConfig
}

func (c Config) withDefaults() Config {
	if c.PortfolioValueUSD == 0 {
		c.PortfolioValueUSD = 10000
	}
	if c.RiskPct == 0 {
		c.RiskPct = 2.0
	}
	if c.MaxPositionPct == 0 {
		c.MaxPositionPct = 25.0
	}
	if c.TTLBars == 0 {
		c.TTLBars = 30
	}
	if c.BootstrapSamples == 0 {
		c.BootstrapSamples = 1000
	}
	if c.ProgressEvery == 0 {
		c.ProgressEvery = 1000
	}
	return c
}

// Input is the historical data for one run. Candles are ordered by bucket;
// sentiment is ordered by timestamp and aligned to candles by sample-and-hold.
type Input struct {
	Asset     string
	Candles   []models.Candle
	Sentiment []models.SentimentPoint
}

// Engine replays history through the divergence detector and the sizer with
// no lookahead: a signal raised on bar i executes at the open of bar i+1.
type Engine struct {
	cfg      Config
	detector *engine.DivergenceDetector
	sizer    *engine.KellySizer
	l        *applogger.Logger
}

func New(cfg Config, l *applogger.Logger) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:      cfg,
		detector: engine.NewDivergenceDetector(cfg.Divergence),
		sizer: engine.NewKellySizer(engine.SizerConfig{
			RiskPct:        cfg.RiskPct,
			MaxPositionPct: cfg.MaxPositionPct,
		}),
		l: l,
	}
}

type openTrade struct {
	action    models.SignalAction
	entryTime time.Time
	entry     float64
	stop      float64
	target    float64
	qty       float64
	barsHeld  int
}

type pendingEntry struct {
	action     models.SignalAction
	confidence float64
}

// Run executes the simulation. onProgress, if non-nil, is called with
// (bars done, bars total) at a coarse cadence and once at the end.
func (e *Engine) Run(ctx context.Context, in Input, onProgress func(done, total int)) (*models.BacktestResult, error) {
	const op = "backtest.run"
	candles := in.Candles
	if len(candles) < 3 {
		return nil, engine.E(engine.KindInsufficientData, op, "need at least 3 candles, got %d", len(candles))
	}
	if len(in.Sentiment) == 0 {
		return nil, engine.E(engine.KindInsufficientData, op, "no sentiment samples for %s", in.Asset)
	}

	scores := alignSentiment(candles, in.Sentiment)
	total := len(candles)
	deadline := time.Time{}
	if e.cfg.WallClockBudget > 0 {
		deadline = time.Now().Add(e.cfg.WallClockBudget)
	}

	equity := e.cfg.PortfolioValueUSD
	peak := equity
	maxDD := 0.0
	curve := make([]models.EquityPoint, 0, total)

	var open *openTrade
	var pending *pendingEntry
	var trades []models.BacktestTrade

	closeTrade := func(t *openTrade, exitTime time.Time, exitPrice float64, reason string) {
		pnl := tradePnL(t, exitPrice)
		equity += pnl
		trades = append(trades, models.BacktestTrade{
			Asset:      in.Asset,
			Action:     t.action,
			EntryTime:  t.entryTime,
			ExitTime:   exitTime,
			EntryPrice: t.entry,
			ExitPrice:  exitPrice,
			Quantity:   t.qty,
			PnL:        pnl,
			ExitReason: reason,
		})
	}

	for i := 1; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, engine.E(engine.KindSimulationTimeout, op, "wall clock budget %s exceeded at bar %d/%d", e.cfg.WallClockBudget, i, total)
		}

		bar := candles[i]

		// Execute the decision made on the previous bar at this bar's open.
		if pending != nil && open == nil {
			open = e.openAt(pending, candles, i)
			pending = nil
		}

		// Resolve an open trade inside this bar. Stop-loss wins when both
		// levels are touched within the same bar.
		if open != nil {
			open.barsHeld++
			if price, reason, hit := resolveBar(open, bar); hit {
				closeTrade(open, bar.Bucket, price, reason)
				open = nil
			} else if open.barsHeld >= e.cfg.TTLBars {
				closeTrade(open, bar.Bucket, bar.Close, "expired")
				open = nil
			}
		}

		// Detect on information up to and including bar i.
		if open == nil && pending == nil {
			if ev, ok := e.stepDivergence(candles, scores, i); ok {
				action := models.ActionBuy
				if ev.Kind == models.DivergenceBearish {
					action = models.ActionSell
				}
				pending = &pendingEntry{action: action, confidence: ev.ReversalProbability}
			}
		}

		// Mark-to-market equity for the curve.
		mtm := equity
		if open != nil {
			mtm += tradePnL(open, bar.Close)
		}
		curve = append(curve, models.EquityPoint{Time: bar.Bucket, Value: mtm})
		if mtm > peak {
			peak = mtm
		}
		if dd := (peak - mtm) / peak; dd > maxDD {
			maxDD = dd
		}

		if onProgress != nil && i%e.cfg.ProgressEvery == 0 {
			onProgress(i, total)
		}
	}

	// Mark-to-market at the horizon end for a still-open trade.
	if open != nil {
		last := candles[total-1]
		closeTrade(open, last.Bucket, last.Close, "horizon_end")
		open = nil
	}
	if onProgress != nil {
		onProgress(total, total)
	}

	res := e.summarize(in, trades, equity, maxDD, total)
	if e.cfg.IncludeTrades {
		res.Trades = trades
	}
	res.EquityCurve = curve

	if e.l != nil {
		e.l.Info("backtest finished",
			applogger.String("asset", in.Asset),
			applogger.Int("bars", total),
			applogger.Int("trades", res.TotalTrades),
			applogger.Float64("net_pnl", res.NetPnL),
			applogger.Float64("var_95", res.VaR95),
		)
	}
	return res, nil
}

// openAt sizes and opens a trade at the open of bar i. Degenerate sizing
// inputs skip the trade instead of failing the run.
func (e *Engine) openAt(p *pendingEntry, candles []models.Candle, i int) *openTrade {
	entry := candles[i].Open
	if entry <= 0 {
		return nil
	}
	vol := trailingVolPct(candles[:i], 20)

	var stop, target float64
	perUnit := entry * math.Max(vol, 0.5) * 0.02
	if p.action == models.ActionBuy {
		stop = entry - perUnit
		target = entry + 2*perUnit
	} else {
		stop = entry + perUnit
		target = entry - 2*perUnit
	}

	plan, err := e.sizer.Size(e.cfg.PortfolioValueUSD, entry, stop, target, p.confidence, vol)
	if err != nil || plan.Quantity <= 0 {
		return nil
	}
	return &openTrade{
		action:    p.action,
		entryTime: candles[i].Bucket,
		entry:     entry,
		stop:      stop,
		target:    target,
		qty:       plan.Quantity,
	}
}

// trailingVolPct is the standard deviation of close-to-close percent returns
// over the trailing window.
func trailingVolPct(candles []models.Candle, window int) float64 {
	n := len(candles)
	if n < 3 {
		return 1.0
	}
	if n > window+1 {
		candles = candles[n-window-1:]
		n = len(candles)
	}
	rets := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		prev := candles[i-1].Close
		if prev <= 0 {
			continue
		}
		rets = append(rets, (candles[i].Close-prev)/prev*100)
	}
	if len(rets) < 2 {
		return 1.0
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

func (e *Engine) summarize(in Input, trades []models.BacktestTrade, equity, maxDD float64, bars int) *models.BacktestResult {
	wins, losses := 0, 0
	net := 0.0
	pnls := make([]float64, 0, len(trades))
	for _, t := range trades {
		net += t.PnL
		pnls = append(pnls, t.PnL)
		if t.PnL > 0 {
			wins++
		} else {
			losses++
		}
	}
	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(wins) / float64(len(trades))
	}

	// An explicit seed pins the bootstrap; without one every run draws a
	// fresh seed and reports it so the run can be reproduced afterwards.
	seed := e.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	var95 := BootstrapVaR(pnls, e.cfg.BootstrapSamples, rng)

	start := e.cfg.PortfolioValueUSD
	res := &models.BacktestResult{
		Asset:          in.Asset,
		TotalTrades:    len(trades),
		Wins:           wins,
		Losses:         losses,
		WinRate:        winRate,
		NetPnL:         net,
		MaxDrawdown:    maxDD,
		VaR95:          var95,
		FinalEquity:    equity,
		TotalReturnPct: (equity - start) / start * 100,
		BarsSimulated:  bars,
		Seed:           seed,
	}
	if len(in.Candles) > 0 {
		res.From = in.Candles[0].Bucket
		res.To = in.Candles[len(in.Candles)-1].Bucket
	}
	return res
}

// stepDivergence checks the single step (i-1, i) for a divergence.
func (e *Engine) stepDivergence(candles []models.Candle, scores []float64, i int) (models.DivergenceEvent, bool) {
	s0, s1 := scores[i-1], scores[i]
	if math.IsNaN(s0) || math.IsNaN(s1) {
		return models.DivergenceEvent{}, false
	}
	pp := []models.PricePoint{
		{Timestamp: candles[i-1].Bucket, Value: candles[i-1].Close},
		{Timestamp: candles[i].Bucket, Value: candles[i].Close},
	}
	sp := []models.SentimentPoint{
		{Timestamp: candles[i-1].Bucket, Score: s0},
		{Timestamp: candles[i].Bucket, Score: s1},
	}
	for ev := range e.detector.Scan(pp, sp) {
		ev.Index = i
		return ev, true
	}
	return models.DivergenceEvent{}, false
}

// resolveBar checks stop and target against the bar range.
func resolveBar(t *openTrade, bar models.Candle) (price float64, reason string, hit bool) {
	if t.action == models.ActionBuy {
		if bar.Low <= t.stop {
			return t.stop, "stop_loss", true
		}
		if bar.High >= t.target {
			return t.target, "take_profit", true
		}
		return 0, "", false
	}
	if bar.High >= t.stop {
		return t.stop, "stop_loss", true
	}
	if bar.Low <= t.target {
		return t.target, "take_profit", true
	}
	return 0, "", false
}

func tradePnL(t *openTrade, price float64) float64 {
	if t.action == models.ActionBuy {
		return (price - t.entry) * t.qty
	}
	return (t.entry - price) * t.qty
}

// alignSentiment maps sentiment samples onto candle buckets by carrying the
// latest sample at or before each bucket forward. Buckets before the first
// sample get NaN.
func alignSentiment(candles []models.Candle, sentiment []models.SentimentPoint) []float64 {
	out := make([]float64, len(candles))
	j := 0
	cur := math.NaN()
	for i, c := range candles {
		for j < len(sentiment) && !sentiment[j].Timestamp.After(c.Bucket) {
			cur = sentiment[j].Score
			j++
		}
		out[i] = cur
	}
	return out
}
