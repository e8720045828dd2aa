package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"SentiTrade/internal/domain/models"
	drepo "SentiTrade/internal/domain/repository"
	domsvc "SentiTrade/internal/domain/service"
	"SentiTrade/internal/services/engine"
	"SentiTrade/internal/services/features"
	"SentiTrade/pkg/config"
	applogger "SentiTrade/pkg/logger"
)

var (
	// ErrSignalNotFound is returned when no signal matches the lookup.
	ErrSignalNotFound = errors.New("signal not found")
	// ErrTerminalState is returned for transitions on a resolved signal.
	ErrTerminalState = errors.New("signal already in a terminal state")
)

// SignalGenerator runs the per-asset signal state machine:
// IDLE -> EVALUATING -> ACTIVE -> {ACCEPTED | DISMISSED | EXPIRED}.
// At most one ACTIVE signal exists per asset; a newly qualified signal
// replaces the old one atomically and rearms the expiry timer.
type SignalGenerator struct {
	cfg       *config.Config
	l         *applogger.Logger
	detector  *engine.DivergenceDetector
	sizer     *engine.KellySizer
	evaluator *engine.RiskRewardEvaluator
	patterns  *engine.PatternScanner
	whale     domsvc.WhaleSource
	store     drepo.SignalStore
	pub       drepo.Publisher
	metrics   drepo.Metrics

	bullBound float64
	bearBound float64

	now func() time.Time

	mu     sync.Mutex
	assets map[string]*assetState
	byID   map[string]*models.Signal
}

type assetState struct {
	window  *engine.SeriesWindow
	current *models.Signal
	expiry  *time.Timer
}

// NewSignalGenerator wires the pure components. Store, publisher and whale
// source may be nil; the generator degrades to in-memory operation.
func NewSignalGenerator(
	cfg *config.Config,
	l *applogger.Logger,
	whale domsvc.WhaleSource,
	store drepo.SignalStore,
	pub drepo.Publisher,
	metrics drepo.Metrics,
) *SignalGenerator {
	e := cfg.Engine
	bull, bear := e.BullishExtremity, e.BearishExtremity
	if bull == 0 {
		bull = 75
	}
	if bear == 0 {
		bear = 25
	}
	return &SignalGenerator{
		cfg: cfg,
		l:   l,
		detector: engine.NewDivergenceDetector(engine.DivergenceConfig{
			PriceMovePct:     e.PriceDropPct,
			SentimentMovePts: e.SentimentRisePts,
			ReversalBase:     e.ReversalBase,
			ReversalSlope:    e.ReversalSlope,
		}),
		sizer: engine.NewKellySizer(engine.SizerConfig{
			RiskPct:        e.RiskPct,
			MaxPositionPct: e.MaxPositionPct,
		}),
		evaluator: engine.NewRiskRewardEvaluator(engine.EvaluatorConfig{
			RatioWeight:   e.RatioWeight,
			WinRateWeight: e.WinRateWeight,
			MinQuality:    e.MinQuality,
			MinRatio:      e.MinRatio,
		}),
		patterns:  engine.NewPatternScanner(e.PatternWindow),
		bullBound: bull,
		bearBound: bear,
		whale:     whale,
		store:     store,
		pub:       pub,
		metrics:   metrics,
		now:       time.Now,
		assets:    make(map[string]*assetState),
		byID:      make(map[string]*models.Signal),
	}
}

func (g *SignalGenerator) state(asset string) *assetState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked(asset)
}

func (g *SignalGenerator) stateLocked(asset string) *assetState {
	st, ok := g.assets[asset]
	if !ok {
		st = &assetState{window: engine.NewSeriesWindow(g.cfg.Engine.PatternWindow)}
		g.assets[asset] = st
	}
	return st
}

// ObserveTick feeds one price tick into the asset's rolling window.
func (g *SignalGenerator) ObserveTick(t *models.Tick) {
	if t == nil || t.Asset == "" {
		return
	}
	g.state(t.Asset).window.ObservePrice(time.Unix(t.Timestamp, 0), t.Price)
	if g.metrics != nil {
		g.metrics.RecordLastPrice(t.Asset, t.Price)
	}
}

// ObserveSentiment feeds one sentiment sample into the asset's window.
func (g *SignalGenerator) ObserveSentiment(s *models.SentimentSample) {
	if s == nil || s.Asset == "" {
		return
	}
	g.state(s.Asset).window.ObserveSentiment(time.Unix(s.Timestamp, 0), s.Score, s.TrustedSources)
	if g.metrics != nil {
		g.metrics.RecordLastSentiment(s.Asset, s.Score)
	}
}

// Evaluate runs one engine pass for the asset. Data errors (insufficient,
// stale) come back as typed engine errors; the periodic loop logs them
// without propagating, the HTTP layer maps them to statuses.
func (g *SignalGenerator) Evaluate(ctx context.Context, asset string) (*models.Evaluation, error) {
	const op = "generator.evaluate"
	start := g.now()
	st := g.state(asset)
	prices, sents := st.window.Snapshot()

	eval := &models.Evaluation{Asset: asset, Timestamp: start, Errors: map[string]string{}}
	defer func() {
		if len(eval.Errors) == 0 {
			eval.Errors = nil
		}
		if g.metrics != nil {
			g.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
		}
	}()

	// Staleness suppression before touching the pure components.
	if last := st.window.LastUpdate(); !last.IsZero() && start.Sub(last) > g.cfg.Engine.StalenessThreshold {
		eval.Errors["feed"] = "stale"
		g.recordError("stale_feed")
		return eval, engine.E(engine.KindStaleFeed, op, "%s feed stale for %s", asset, start.Sub(last).Truncate(time.Second))
	}

	events, err := g.detector.Detect(prices, sents)
	if err != nil {
		eval.Errors["divergence"] = err.Error()
		g.recordError("insufficient_data")
		return eval, err
	}
	// A divergence on the newest step is the primary trigger. Extreme
	// sentiment is the secondary one, gated so a bullish extremity never
	// fires into a falling price and a bearish one never into a rising
	// price.
	var div *models.DivergenceEvent
	if len(events) > 0 && events[len(events)-1].Index == len(prices)-1 {
		ev := events[len(events)-1]
		div = &ev
	}
	lastSent, _ := st.window.LastSentiment()
	tr := priceTrend(prices)

	var action models.SignalAction
	switch {
	case div != nil && div.Kind == models.DivergenceBullish:
		action = models.ActionBuy
	case div != nil:
		action = models.ActionSell
	case lastSent.Score > g.bullBound && tr != trendDown:
		action = models.ActionBuy
	case lastSent.Score < g.bearBound && tr != trendUp:
		action = models.ActionSell
	default:
		return eval, nil
	}
	eval.Divergence = div

	// Patterns, whale conviction, and historical win rate are independent;
	// fan out and collect.
	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		hits, corr := g.patterns.Scan(prices, sents)
		ch <- item{"patterns", struct {
			hits []models.PatternHit
			corr float64
		}{hits, corr}, nil}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if g.whale == nil {
			ch <- item{"whale", 0.0, nil}
			return
		}
		conv, err := g.whale.Conviction(ctx, asset)
		ch <- item{"whale", conv, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		wr, n, err := g.winRate(ctx, asset)
		ch <- item{"win_rate", struct {
			wr float64
			n  int
		}{wr, n}, err}
	}()
	go func() { wg.Wait(); close(ch) }()

	var hits []models.PatternHit
	var corr, conviction float64
	winRate := g.cfg.Engine.PriorWinRate
	for it := range ch {
		if it.err != nil {
			// Collaborator failures degrade, never abort the pass.
			eval.Errors[it.name] = it.err.Error()
			if g.l != nil {
				g.l.Debug("evaluate collaborator degraded",
					applogger.String("asset", asset),
					applogger.String("part", it.name),
					applogger.Error(it.err),
				)
			}
			continue
		}
		switch it.name {
		case "patterns":
			v := it.val.(struct {
				hits []models.PatternHit
				corr float64
			})
			hits, corr = v.hits, v.corr
		case "whale":
			conviction = it.val.(float64)
		case "win_rate":
			v := it.val.(struct {
				wr float64
				n  int
			})
			if v.n > 0 {
				winRate = v.wr
			}
		}
	}
	eval.Patterns = hits
	eval.Correlation = corr

	confidence := g.confidence(action, lastSent, hits, conviction)

	entry := prices[len(prices)-1].Value
	vol := features.PctVolatility(prices, 20)
	stopDist := entry * math.Max(vol, 0.5) * 0.02
	var stop, target float64
	if action == models.ActionBuy {
		stop = entry - stopDist
		target = entry + 2*stopDist
	} else {
		stop = entry + stopDist
		target = entry - 2*stopDist
	}

	plan, err := g.sizer.Size(g.cfg.Engine.PortfolioValueUSD, entry, stop, target, confidence, vol)
	if err != nil {
		eval.Errors["sizing"] = err.Error()
		g.recordError("invalid_risk_parameters")
		return eval, err
	}
	eval.Position = plan

	verdict := g.evaluator.Evaluate(plan.RiskRewardRatio, winRate)
	eval.Verdict = &verdict

	if !verdict.Accept || confidence < g.cfg.Engine.MinConfidence {
		if g.l != nil {
			g.l.Debug("candidate rejected",
				applogger.String("asset", asset),
				applogger.Float64("confidence", confidence),
				applogger.Float64("quality", verdict.QualityScore),
				applogger.String("reason", verdict.Reason),
			)
		}
		return eval, nil
	}

	sig := &models.Signal{
		ID:          newSignalID(),
		Asset:       asset,
		Action:      action,
		Status:      models.StatusActive,
		Confidence:  confidence,
		Entry:       entry,
		StopLoss:    stop,
		TakeProfit:  target,
		Position:    plan,
		Divergence:  div,
		Verdict:     &verdict,
		Patterns:    patternNames(hits),
		Correlation: corr,
		Reasoning:   reasoning(action, div, lastSent, hits, corr),
		CreatedAt:   start,
		ExpiresAt:   start.Add(g.cfg.Engine.SignalTTL),
	}

	g.activate(ctx, st, sig)
	eval.Signal = sig

	if g.l != nil {
		g.l.Info("signal generated",
			applogger.String("asset", asset),
			applogger.String("id", sig.ID),
			applogger.String("action", string(action)),
			applogger.Float64("confidence", confidence),
			applogger.Float64("ratio", plan.RiskRewardRatio),
		)
	}
	return eval, nil
}

// activate installs sig as the asset's ACTIVE signal, dismissing any current
// one and rearming the expiry timer, all under one lock.
func (g *SignalGenerator) activate(ctx context.Context, st *assetState, sig *models.Signal) {
	g.mu.Lock()
	old := st.current
	if st.expiry != nil {
		st.expiry.Stop()
		st.expiry = nil
	}
	if old != nil && old.Status == models.StatusActive {
		g.resolveLocked(old, models.StatusDismissed, "replaced by "+sig.ID)
	}
	st.current = sig
	g.byID[sig.ID] = sig
	id := sig.ID
	st.expiry = time.AfterFunc(g.cfg.Engine.SignalTTL, func() { g.expire(id) })
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.RecordSignalTransition(sig.Asset, string(models.StatusEvaluating), string(models.StatusActive))
	}
	g.persist(ctx, sig)
	g.publish(models.StatusEvaluating, models.StatusActive, sig, "qualified")
	if old != nil && old.Status == models.StatusDismissed {
		g.updateStatus(old)
		g.publish(models.StatusActive, models.StatusDismissed, old, old.StatusReason)
	}
}

// resolveLocked moves a signal to a terminal state. Caller holds g.mu.
func (g *SignalGenerator) resolveLocked(s *models.Signal, to models.SignalStatus, reason string) {
	now := g.now()
	s.Status = to
	s.StatusReason = reason
	s.ResolvedAt = &now
	if g.metrics != nil {
		g.metrics.RecordSignalTransition(s.Asset, string(models.StatusActive), string(to))
	}
}

func (g *SignalGenerator) expire(id string) {
	g.mu.Lock()
	s, ok := g.byID[id]
	if !ok || s.Status != models.StatusActive {
		g.mu.Unlock()
		return
	}
	g.resolveLocked(s, models.StatusExpired, "ttl elapsed")
	g.mu.Unlock()

	g.updateStatus(s)
	g.publish(models.StatusActive, models.StatusExpired, s, "ttl elapsed")
	if g.l != nil {
		g.l.Info("signal expired", applogger.String("id", id), applogger.String("asset", s.Asset))
	}
}

// GetLatest returns the asset's current ACTIVE signal. Resolved signals are
// only reachable through history.
func (g *SignalGenerator) GetLatest(ctx context.Context, asset string) (*models.Signal, error) {
	g.mu.Lock()
	st, ok := g.assets[asset]
	if ok && st.current != nil && st.current.Status == models.StatusActive {
		s := *st.current
		g.mu.Unlock()
		return &s, nil
	}
	g.mu.Unlock()

	// Fall back to the store for signals from before a restart.
	if g.store != nil {
		s, err := g.store.Latest(ctx, asset)
		if err == nil && s != nil && s.Status == models.StatusActive {
			return s, nil
		}
	}
	return nil, ErrSignalNotFound
}

// Accept marks an ACTIVE signal as taken by the user.
func (g *SignalGenerator) Accept(ctx context.Context, id string) (*models.Signal, error) {
	return g.userResolve(ctx, id, models.StatusAccepted, "accepted by user")
}

// Dismiss marks an ACTIVE signal as rejected by the user.
func (g *SignalGenerator) Dismiss(ctx context.Context, id string) (*models.Signal, error) {
	return g.userResolve(ctx, id, models.StatusDismissed, "dismissed by user")
}

func (g *SignalGenerator) userResolve(ctx context.Context, id string, to models.SignalStatus, reason string) (*models.Signal, error) {
	g.mu.Lock()
	s, ok := g.byID[id]
	if !ok {
		g.mu.Unlock()
		return nil, ErrSignalNotFound
	}
	if s.Status.Terminal() {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is %s", ErrTerminalState, id, s.Status)
	}
	if st, ok := g.assets[s.Asset]; ok && st.current == s && st.expiry != nil {
		st.expiry.Stop()
		st.expiry = nil
	}
	g.resolveLocked(s, to, reason)
	out := *s
	g.mu.Unlock()

	g.updateStatus(s)
	g.publish(models.StatusActive, to, s, reason)
	return &out, nil
}

// Close stops all expiry timers.
func (g *SignalGenerator) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, st := range g.assets {
		if st.expiry != nil {
			st.expiry.Stop()
			st.expiry = nil
		}
	}
}

func (g *SignalGenerator) winRate(ctx context.Context, asset string) (float64, int, error) {
	if g.store == nil {
		return 0, 0, nil
	}
	return g.store.WinRate(ctx, asset, g.cfg.Engine.SignalHistoryWindow)
}

// confidence blends sentiment strength, trusted source count, pattern hits
// and whale conviction into a 0-100 score.
func (g *SignalGenerator) confidence(action models.SignalAction, last models.SentimentPoint, hits []models.PatternHit, conviction float64) float64 {
	strength := last.Score
	if action == models.ActionSell {
		strength = 100 - last.Score
	}
	conf := strength*0.9 + float64(last.TrustedSources)*2
	if len(hits) > 0 {
		conf += 10
	}
	if conviction > 0 {
		// Soft nudge of at most +-5 points around a neutral 0.5.
		conf += (conviction - 0.5) * 10
	}
	return math.Max(0, math.Min(100, conf))
}

func (g *SignalGenerator) persist(ctx context.Context, s *models.Signal) {
	if g.store == nil {
		return
	}
	if err := g.store.Save(ctx, s); err != nil {
		g.recordError("signal_store")
		if g.l != nil {
			g.l.Warn("signal save failed", applogger.String("id", s.ID), applogger.Error(err))
		}
	}
}

func (g *SignalGenerator) updateStatus(s *models.Signal) {
	if g.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	at := g.now()
	if s.ResolvedAt != nil {
		at = *s.ResolvedAt
	}
	if err := g.store.UpdateStatus(ctx, s.ID, s.Status, s.StatusReason, at); err != nil {
		g.recordError("signal_store")
		if g.l != nil {
			g.l.Warn("signal status update failed", applogger.String("id", s.ID), applogger.Error(err))
		}
	}
}

func (g *SignalGenerator) publish(from, to models.SignalStatus, s *models.Signal, reason string) {
	if g.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev := &models.SignalEvent{
		SignalID:  s.ID,
		Asset:     s.Asset,
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: g.now(),
	}
	if err := g.pub.Publish(ctx, ev); err != nil {
		g.recordError("event_publish")
		if g.l != nil {
			g.l.Warn("event publish failed", applogger.String("id", s.ID), applogger.Error(err))
		}
	}
}

func (g *SignalGenerator) recordError(kind string) {
	if g.metrics != nil {
		g.metrics.RecordError(kind)
	}
}

func newSignalID() string {
	return "sig_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func patternNames(hits []models.PatternHit) []string {
	if len(hits) == 0 {
		return nil
	}
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.Name
	}
	return names
}

type priceTrendDir int

const (
	trendFlat priceTrendDir = iota
	trendUp
	trendDown
)

// priceTrend classifies the newest step's price move. Moves under half a
// percent count as flat.
func priceTrend(prices []models.PricePoint) priceTrendDir {
	n := len(prices)
	if n < 2 {
		return trendFlat
	}
	p0, p1 := prices[n-2].Value, prices[n-1].Value
	if p0 <= 0 || math.IsNaN(p0) || math.IsNaN(p1) {
		return trendFlat
	}
	pct := (p1 - p0) / p0 * 100
	switch {
	case pct > 0.5:
		return trendUp
	case pct < -0.5:
		return trendDown
	}
	return trendFlat
}

// reasoning renders the human-readable explanation attached to a signal.
// The divergence event is nil on the sentiment-extremity path.
func reasoning(action models.SignalAction, ev *models.DivergenceEvent, last models.SentimentPoint, hits []models.PatternHit, corr float64) string {
	var b strings.Builder
	if ev != nil {
		fmt.Fprintf(&b, "%s: price %+.1f%% vs sentiment %+.1f pts (reversal %.0f%%)", action, ev.PriceChangePct, ev.SentimentChangePts, ev.ReversalProbability)
		fmt.Fprintf(&b, " + sentiment %.0f from %d trusted sources", last.Score, last.TrustedSources)
	} else {
		label := "bullish"
		if action == models.ActionSell {
			label = "bearish"
		}
		fmt.Fprintf(&b, "%s: %.0f%% %s sentiment score from %d trusted sources", action, last.Score, label, last.TrustedSources)
	}
	if len(hits) > 0 {
		b.WriteString(" | Patterns: ")
		b.WriteString(strings.Join(patternNames(hits), ", "))
	}
	fmt.Fprintf(&b, " | P/S Corr: %.2f", corr)
	return b.String()
}
