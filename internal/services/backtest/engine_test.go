package backtest

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentiTrade/internal/domain/models"
	"SentiTrade/internal/services/engine"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// bars builds 1m candles from a close series. Each open is the previous
// close, so next-bar-open execution is easy to assert.
func bars(closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	prev := closes[0]
	for i, c := range closes {
		open := prev
		out[i] = models.Candle{
			Bucket: t0.Add(time.Duration(i) * time.Minute),
			Asset:  "BTC",
			Open:   open,
			High:   math.Max(open, c) * 1.001,
			Low:    math.Min(open, c) * 0.999,
			Close:  c,
			Volume: 1,
		}
		prev = c
	}
	return out
}

func sentimentAt(scores ...float64) []models.SentimentPoint {
	out := make([]models.SentimentPoint, len(scores))
	for i, s := range scores {
		out[i] = models.SentimentPoint{Timestamp: t0.Add(time.Duration(i) * time.Minute), Score: s}
	}
	return out
}

// One bullish divergence at bar 5: close -3% while sentiment jumps +8.
func divergenceInput() Input {
	return Input{
		Asset:     "BTC",
		Candles:   bars(100, 100, 100, 100, 100, 97, 97, 97, 97, 97, 97),
		Sentiment: sentimentAt(50, 50, 50, 50, 50, 58, 58, 58, 58, 58, 58),
	}
}

func TestRunInsufficientData(t *testing.T) {
	e := New(Config{Seed: 1}, nil)

	_, err := e.Run(context.Background(), Input{Asset: "BTC", Candles: bars(100, 101)}, nil)
	require.Error(t, err)
	assert.True(t, engine.IsKind(err, engine.KindInsufficientData))
}

func TestRunExecutesAtNextBarOpen(t *testing.T) {
	e := New(Config{Seed: 1, TTLBars: 3, IncludeTrades: true}, nil)
	in := divergenceInput()

	res, err := e.Run(context.Background(), in, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalTrades)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	// Divergence fires on bar 5; the trade opens on bar 6 at its open.
	assert.Equal(t, in.Candles[6].Bucket, tr.EntryTime)
	assert.Equal(t, in.Candles[6].Open, tr.EntryPrice)
	assert.Equal(t, models.ActionBuy, tr.Action)
	assert.Equal(t, "expired", tr.ExitReason)
}

func TestRunStopLossWinsWhenBothLevelsTouched(t *testing.T) {
	e := New(Config{Seed: 1, TTLBars: 10, IncludeTrades: true}, nil)
	in := divergenceInput()
	// Bar 6 sweeps far through both the stop and the target.
	in.Candles[6].High = 120
	in.Candles[6].Low = 80
	in.Candles[6].Close = 97

	res, err := e.Run(context.Background(), in, nil)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, "stop_loss", tr.ExitReason)
	assert.Less(t, tr.ExitPrice, tr.EntryPrice)
	assert.Negative(t, tr.PnL)
}

func TestRunMarksOpenTradeAtHorizonEnd(t *testing.T) {
	e := New(Config{Seed: 1, TTLBars: 500, IncludeTrades: true}, nil)
	in := divergenceInput()

	res, err := e.Run(context.Background(), in, nil)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "horizon_end", res.Trades[0].ExitReason)
	assert.Equal(t, in.Candles[len(in.Candles)-1].Close, res.Trades[0].ExitPrice)
}

func TestRunDeterministicForSeed(t *testing.T) {
	in := divergenceInput()

	a, err := New(Config{Seed: 42, TTLBars: 3}, nil).Run(context.Background(), in, nil)
	require.NoError(t, err)
	b, err := New(Config{Seed: 42, TTLBars: 3}, nil).Run(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Equal(t, a.VaR95, b.VaR95)
	assert.Equal(t, a.NetPnL, b.NetPnL)
	assert.Equal(t, a.TotalTrades, b.TotalTrades)
}

func TestRunUnseededDrawsFreshSeed(t *testing.T) {
	in := divergenceInput()

	a, err := New(Config{TTLBars: 3}, nil).Run(context.Background(), in, nil)
	require.NoError(t, err)
	b, err := New(Config{TTLBars: 3}, nil).Run(context.Background(), in, nil)
	require.NoError(t, err)

	assert.NotZero(t, a.Seed)
	assert.NotZero(t, b.Seed)
	assert.NotEqual(t, a.Seed, b.Seed)
}

func TestRunNoTradesOnRisingPriceFlatSentiment(t *testing.T) {
	e := New(Config{Seed: 1, TTLBars: 3}, nil)
	in := Input{
		Asset:     "BTC",
		Candles:   bars(100, 101, 102, 103, 104, 105, 106, 107, 108, 109),
		Sentiment: sentimentAt(50, 50, 50, 50, 50, 50, 50, 50, 50, 50),
	}

	res, err := e.Run(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalTrades)
	assert.Zero(t, res.NetPnL)
	assert.Zero(t, res.TotalReturnPct)
}

func TestRunCancellation(t *testing.T) {
	e := New(Config{Seed: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, divergenceInput(), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunReportsProgress(t *testing.T) {
	e := New(Config{Seed: 1, TTLBars: 3, ProgressEvery: 2}, nil)

	var last, total int
	_, err := e.Run(context.Background(), divergenceInput(), func(done, tot int) {
		last, total = done, tot
	})
	require.NoError(t, err)
	assert.Equal(t, total, last)
	assert.Equal(t, 11, total)
}

func TestRunEquityCurveLength(t *testing.T) {
	e := New(Config{Seed: 1, TTLBars: 3}, nil)
	in := divergenceInput()

	res, err := e.Run(context.Background(), in, nil)
	require.NoError(t, err)
	require.Len(t, res.EquityCurve, len(in.Candles)-1)
	assert.GreaterOrEqual(t, res.MaxDrawdown, 0.0)

	// Each point carries its bar's timestamp; the last one matches the
	// final equity and the reported total return.
	first, last := res.EquityCurve[0], res.EquityCurve[len(res.EquityCurve)-1]
	assert.Equal(t, in.Candles[1].Bucket, first.Time)
	assert.Equal(t, in.Candles[len(in.Candles)-1].Bucket, last.Time)
	assert.InDelta(t, res.FinalEquity, last.Value, 1e-9)
	assert.InDelta(t, (res.FinalEquity-10000)/10000*100, res.TotalReturnPct, 1e-9)
}

func TestBootstrapVaRConstantLosses(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	// Every resample of three -10 trades sums to -30.
	got := BootstrapVaR([]float64{-10, -10, -10}, 200, rng)
	assert.InDelta(t, 30.0, got, 1e-9)
}

func TestBootstrapVaRDeterministic(t *testing.T) {
	pnls := []float64{12, -8, 30, -25, 4, -2, 18}
	a := BootstrapVaR(pnls, 1000, rand.New(rand.NewSource(99)))
	b := BootstrapVaR(pnls, 1000, rand.New(rand.NewSource(99)))
	assert.Equal(t, a, b)
}

func TestBootstrapVaREmpty(t *testing.T) {
	assert.Equal(t, 0.0, BootstrapVaR(nil, 1000, rand.New(rand.NewSource(1))))
}
