package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentiTrade/internal/domain/models"
	"SentiTrade/pkg/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Engine.PriceDropPct = 2.0
	cfg.Engine.SentimentRisePts = 5.0
	cfg.Engine.ReversalBase = 50
	cfg.Engine.ReversalSlope = 2.0
	cfg.Engine.RiskPct = 2.0
	cfg.Engine.MaxPositionPct = 25.0
	cfg.Engine.RatioWeight = 0.5
	cfg.Engine.WinRateWeight = 0.5
	cfg.Engine.MinQuality = 60
	cfg.Engine.MinRatio = 1.5
	cfg.Engine.MinConfidence = 70
	cfg.Engine.PriorWinRate = 0.5
	cfg.Engine.SignalTTL = 30 * time.Minute
	cfg.Engine.StalenessThreshold = 5 * time.Minute
	cfg.Engine.PatternWindow = 50
	cfg.Engine.PortfolioValueUSD = 10000
	cfg.Engine.SignalHistoryWindow = 100
	return cfg
}

func newTestGenerator(cfg *config.Config) *SignalGenerator {
	return NewSignalGenerator(cfg, nil, nil, nil, nil, nil)
}

// feed pushes one aligned (price, sentiment) pair into the asset window.
func feed(g *SignalGenerator, asset string, ts int64, price, score float64) {
	g.ObserveTick(&models.Tick{Asset: asset, Timestamp: ts, Price: price, Volume: 1})
	g.ObserveSentiment(&models.SentimentSample{Asset: asset, Timestamp: ts, Score: score, TrustedSources: 3})
}

// seedDivergence arranges a bullish divergence on the newest step.
func seedDivergence(g *SignalGenerator, asset string, now time.Time) {
	base := now.Unix()
	feed(g, asset, base-120, 100, 70)
	feed(g, asset, base-60, 100, 70)
	feed(g, asset, base, 97, 78)
}

func TestEvaluateGeneratesActiveSignal(t *testing.T) {
	g := newTestGenerator(testConfig())
	now := time.Now()
	seedDivergence(g, "BTC", now)

	eval, err := g.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	require.NotNil(t, eval.Signal)

	s := eval.Signal
	assert.Equal(t, models.StatusActive, s.Status)
	assert.Equal(t, models.ActionBuy, s.Action)
	assert.Equal(t, "BTC", s.Asset)
	assert.GreaterOrEqual(t, s.Confidence, 70.0)
	assert.Less(t, s.StopLoss, s.Entry)
	assert.Greater(t, s.TakeProfit, s.Entry)
	assert.NotNil(t, s.Position)
	assert.InDelta(t, 2.0, s.Position.RiskRewardRatio, 1e-9)
	assert.Contains(t, s.Reasoning, "BUY")
	assert.Contains(t, s.Reasoning, "P/S Corr")
	assert.Regexp(t, `^sig_[0-9a-f]{8}$`, s.ID)
	assert.Equal(t, s.CreatedAt.Add(30*time.Minute), s.ExpiresAt)

	got, err := g.GetLatest(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestEvaluateNoDivergenceNoSignal(t *testing.T) {
	g := newTestGenerator(testConfig())
	base := time.Now().Unix()
	feed(g, "BTC", base-120, 100, 50)
	feed(g, "BTC", base-60, 100.5, 51)
	feed(g, "BTC", base, 100.2, 50)

	eval, err := g.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Nil(t, eval.Signal)

	_, err = g.GetLatest(context.Background(), "BTC")
	assert.ErrorIs(t, err, ErrSignalNotFound)
}

func TestEvaluateInsufficientData(t *testing.T) {
	g := newTestGenerator(testConfig())
	base := time.Now().Unix()
	feed(g, "BTC", base-60, 100, 50)
	feed(g, "BTC", base, 97, 58)

	eval, err := g.Evaluate(context.Background(), "BTC")
	require.Error(t, err)
	assert.Nil(t, eval.Signal)
	assert.Contains(t, eval.Errors, "divergence")
}

func TestEvaluateStaleFeedSuppressed(t *testing.T) {
	g := newTestGenerator(testConfig())
	now := time.Now()
	seedDivergence(g, "BTC", now.Add(-time.Hour))

	eval, err := g.Evaluate(context.Background(), "BTC")
	require.Error(t, err)
	assert.Nil(t, eval.Signal)
	assert.Equal(t, "stale", eval.Errors["feed"])
}

func TestNewSignalReplacesActiveAtomically(t *testing.T) {
	g := newTestGenerator(testConfig())
	now := time.Now()
	seedDivergence(g, "BTC", now)

	first, err := g.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	require.NotNil(t, first.Signal)

	// A fresh divergence on the newest step qualifies a replacement.
	feed(g, "BTC", now.Unix()+60, 94, 86)
	second, err := g.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	require.NotNil(t, second.Signal)
	require.NotEqual(t, first.Signal.ID, second.Signal.ID)

	assert.Equal(t, models.StatusDismissed, first.Signal.Status)
	assert.Contains(t, first.Signal.StatusReason, "replaced by "+second.Signal.ID)
	assert.NotNil(t, first.Signal.ResolvedAt)

	latest, err := g.GetLatest(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, second.Signal.ID, latest.ID)
	assert.Equal(t, models.StatusActive, latest.Status)
}

func TestAcceptAndDismissTransitions(t *testing.T) {
	g := newTestGenerator(testConfig())
	seedDivergence(g, "BTC", time.Now())

	eval, err := g.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	require.NotNil(t, eval.Signal)

	s, err := g.Accept(context.Background(), eval.Signal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, s.Status)
	assert.NotNil(t, s.ResolvedAt)

	// Terminal states are immutable.
	_, err = g.Dismiss(context.Background(), eval.Signal.ID)
	assert.ErrorIs(t, err, ErrTerminalState)
	_, err = g.Accept(context.Background(), eval.Signal.ID)
	assert.ErrorIs(t, err, ErrTerminalState)
}

func TestAcceptUnknownSignal(t *testing.T) {
	g := newTestGenerator(testConfig())
	_, err := g.Accept(context.Background(), "sig_deadbeef")
	assert.ErrorIs(t, err, ErrSignalNotFound)
}

func TestSignalExpiresAfterTTL(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.SignalTTL = 20 * time.Millisecond
	g := newTestGenerator(cfg)
	seedDivergence(g, "BTC", time.Now())

	eval, err := g.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	require.NotNil(t, eval.Signal)

	// Once expired the signal drops out of the active lookup.
	assert.Eventually(t, func() bool {
		_, err := g.GetLatest(context.Background(), "BTC")
		return errors.Is(err, ErrSignalNotFound)
	}, time.Second, 5*time.Millisecond)

	// Expired is terminal.
	_, err = g.Accept(context.Background(), eval.Signal.ID)
	assert.ErrorIs(t, err, ErrTerminalState)
}

func TestBearishDivergenceYieldsSell(t *testing.T) {
	g := newTestGenerator(testConfig())
	base := time.Now().Unix()
	feed(g, "BTC", base-120, 100, 28)
	feed(g, "BTC", base-60, 100, 28)
	feed(g, "BTC", base, 103, 20)

	eval, err := g.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	require.NotNil(t, eval.Signal)
	s := eval.Signal
	assert.Equal(t, models.ActionSell, s.Action)
	assert.Greater(t, s.StopLoss, s.Entry)
	assert.Less(t, s.TakeProfit, s.Entry)
}

func TestEvaluateBullishExtremityFlatPrice(t *testing.T) {
	g := newTestGenerator(testConfig())
	base := time.Now().Unix()
	feed(g, "BTC", base-120, 100, 80)
	feed(g, "BTC", base-60, 100, 81)
	feed(g, "BTC", base, 100, 82)

	eval, err := g.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	require.NotNil(t, eval.Signal)

	s := eval.Signal
	assert.Equal(t, models.ActionBuy, s.Action)
	assert.Nil(t, s.Divergence)
	assert.GreaterOrEqual(t, s.Confidence, 70.0)
	assert.Contains(t, s.Reasoning, "bullish sentiment score")
}

func TestEvaluateBearishExtremityFlatPrice(t *testing.T) {
	g := newTestGenerator(testConfig())
	base := time.Now().Unix()
	feed(g, "BTC", base-120, 100, 18)
	feed(g, "BTC", base-60, 100, 17)
	feed(g, "BTC", base, 100, 15)

	eval, err := g.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	require.NotNil(t, eval.Signal)
	assert.Equal(t, models.ActionSell, eval.Signal.Action)
	assert.Nil(t, eval.Signal.Divergence)
	assert.Contains(t, eval.Signal.Reasoning, "bearish sentiment score")
}

func TestEvaluateExtremityGatedByOpposingTrend(t *testing.T) {
	g := newTestGenerator(testConfig())
	base := time.Now().Unix()
	// Bullish extremity but the price is sliding; not actionable.
	feed(g, "BTC", base-120, 100, 80)
	feed(g, "BTC", base-60, 99.4, 81)
	feed(g, "BTC", base, 98.7, 82)

	eval, err := g.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Nil(t, eval.Signal)
}

func TestGetLatestOnlyActive(t *testing.T) {
	g := newTestGenerator(testConfig())
	seedDivergence(g, "BTC", time.Now())

	eval, err := g.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	require.NotNil(t, eval.Signal)

	_, err = g.Accept(context.Background(), eval.Signal.ID)
	require.NoError(t, err)

	// Resolved signals are not served as the latest.
	_, err = g.GetLatest(context.Background(), "BTC")
	assert.ErrorIs(t, err, ErrSignalNotFound)
}
