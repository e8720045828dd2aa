package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"SentiTrade/internal/domain/models"
	drepo "SentiTrade/internal/domain/repository"
	"SentiTrade/internal/services/backtest"
	"SentiTrade/internal/services/engine"
	pkgcache "SentiTrade/pkg/cache"
	"SentiTrade/pkg/config"
	applogger "SentiTrade/pkg/logger"
	"SentiTrade/pkg/queue"
	"SentiTrade/pkg/util"
)

// ErrJobNotFound is returned when no backtest job matches the lookup.
var ErrJobNotFound = errors.New("backtest job not found")

// BacktestJobType is the queue message type for asynchronous runs.
const BacktestJobType = "backtest.run"

const progressKeyPrefix = "backtest:job"

// BacktestRunner orchestrates simulations: short horizons run synchronously,
// long ones go through the Redis job queue with progress kept in the cache.
type BacktestRunner struct {
	cfg     *config.Config
	l       *applogger.Logger
	store   drepo.SeriesStore
	cache   pkgcache.Service
	queue   queue.QueueService
	metrics drepo.Metrics
}

func NewBacktestRunner(
	cfg *config.Config,
	l *applogger.Logger,
	store drepo.SeriesStore,
	cache pkgcache.Service,
	q queue.QueueService,
	metrics drepo.Metrics,
) *BacktestRunner {
	return &BacktestRunner{cfg: cfg, l: l, store: store, cache: cache, queue: q, metrics: metrics}
}

type backtestJobPayload struct {
	JobID   string                    `json:"job_id"`
	Request models.BacktestRunRequest `json:"request"`
}

// Run executes the request. It returns either a finished result (sync path)
// or a job id (async path), never both.
func (r *BacktestRunner) Run(ctx context.Context, req models.BacktestRunRequest) (*models.BacktestResult, string, error) {
	from, ok := util.ParseTime(req.From)
	if !ok {
		return nil, "", fmt.Errorf("invalid from time: %q", req.From)
	}
	to, ok := util.ParseTime(req.To)
	if !ok {
		return nil, "", fmt.Errorf("invalid to time: %q", req.To)
	}
	if !from.Before(to) {
		return nil, "", fmt.Errorf("from must be before to")
	}

	days := int(to.Sub(from).Hours() / 24)
	if r.queue != nil && days > r.cfg.Backtest.AsyncOverDays {
		jobID := "bt_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
		r.saveProgress(ctx, &models.BacktestProgress{
			JobID:     jobID,
			Asset:     req.Asset,
			State:     models.BacktestQueued,
			UpdatedAt: time.Now(),
		})
		if err := r.queue.PublishMessage(ctx, BacktestJobType, backtestJobPayload{JobID: jobID, Request: req}); err != nil {
			return nil, "", fmt.Errorf("enqueue backtest: %w", err)
		}
		if r.l != nil {
			r.l.Info("backtest queued",
				applogger.String("job_id", jobID),
				applogger.String("asset", req.Asset),
				applogger.Int("days", days),
			)
		}
		return nil, jobID, nil
	}

	res, err := r.execute(ctx, "", req, from, to)
	return res, "", err
}

// Status returns the progress document for an asynchronous job.
func (r *BacktestRunner) Status(ctx context.Context, jobID string) (*models.BacktestProgress, error) {
	if r.cache == nil {
		return nil, ErrJobNotFound
	}
	var p models.BacktestProgress
	if err := r.cache.Get(ctx, pkgcache.GenerateKey(progressKeyPrefix, jobID), &p); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("job status: %w", err)
	}
	return &p, nil
}

// execute fetches the history and runs the engine. jobID is empty on the
// synchronous path.
func (r *BacktestRunner) execute(ctx context.Context, jobID string, req models.BacktestRunRequest, from, to time.Time) (*models.BacktestResult, error) {
	tf := drepo.NormalizeTimeframe(req.TF)
	candles, err := r.store.GetCandles(ctx, req.Asset, from, to, tf)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	sentiment, err := r.store.GetSentiment(ctx, req.Asset, from, to)
	if err != nil {
		return nil, fmt.Errorf("load sentiment: %w", err)
	}

	seed := req.Seed
	if seed == 0 {
		seed = r.cfg.Backtest.Seed
	}
	eng := backtest.New(backtest.Config{
		PortfolioValueUSD: req.PortfolioValueUSD,
		RiskPct:           req.RiskPct,
		MaxPositionPct:    r.cfg.Engine.MaxPositionPct,
		TTLBars:           req.TTLBars,
		BootstrapSamples:  req.BootstrapSamples,
		Seed:              seed,
		WallClockBudget:   r.cfg.Backtest.WallClockBudget,
		IncludeTrades:     req.IncludeTrades,
		Divergence: engine.DivergenceConfig{
			PriceMovePct:     r.cfg.Engine.PriceDropPct,
			SentimentMovePts: r.cfg.Engine.SentimentRisePts,
			ReversalBase:     r.cfg.Engine.ReversalBase,
			ReversalSlope:    r.cfg.Engine.ReversalSlope,
		},
	}, r.l)

	onProgress := func(done, total int) {
		if r.metrics != nil {
			r.metrics.RecordBacktestBars(done)
		}
		if jobID == "" {
			return
		}
		r.saveProgress(ctx, &models.BacktestProgress{
			JobID:     jobID,
			Asset:     req.Asset,
			State:     models.BacktestRunning,
			BarsDone:  done,
			BarsTotal: total,
			UpdatedAt: time.Now(),
		})
	}

	start := time.Now()
	res, err := eng.Run(ctx, backtest.Input{Asset: req.Asset, Candles: candles, Sentiment: sentiment}, onProgress)
	if r.metrics != nil {
		r.metrics.RecordLatency("backtest_run", time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ExecuteJob runs a queued request and records terminal progress. Used by the
// queue job handler.
func (r *BacktestRunner) ExecuteJob(ctx context.Context, jobID string, req models.BacktestRunRequest) error {
	from, okF := util.ParseTime(req.From)
	to, okT := util.ParseTime(req.To)
	if !okF || !okT {
		r.failJob(ctx, jobID, req.Asset, "invalid time range")
		return fmt.Errorf("invalid time range for job %s", jobID)
	}

	res, err := r.execute(ctx, jobID, req, from, to)
	if err != nil {
		r.failJob(ctx, jobID, req.Asset, err.Error())
		return err
	}
	r.saveProgress(ctx, &models.BacktestProgress{
		JobID:     jobID,
		Asset:     req.Asset,
		State:     models.BacktestDone,
		BarsDone:  res.BarsSimulated,
		BarsTotal: res.BarsSimulated,
		Result:    res,
		UpdatedAt: time.Now(),
	})
	return nil
}

func (r *BacktestRunner) failJob(ctx context.Context, jobID, asset, msg string) {
	r.saveProgress(ctx, &models.BacktestProgress{
		JobID:     jobID,
		Asset:     asset,
		State:     models.BacktestFailed,
		Error:     msg,
		UpdatedAt: time.Now(),
	})
	if r.l != nil {
		r.l.Error("backtest job failed", applogger.String("job_id", jobID), applogger.String("reason", msg))
	}
}

func (r *BacktestRunner) saveProgress(ctx context.Context, p *models.BacktestProgress) {
	if r.cache == nil || p.JobID == "" {
		return
	}
	if err := r.cache.Set(ctx, pkgcache.GenerateKey(progressKeyPrefix, p.JobID), p, r.cfg.Backtest.ProgressTTL); err != nil && r.l != nil {
		r.l.Warn("progress save failed", applogger.String("job_id", p.JobID), applogger.Error(err))
	}
}

// BacktestJob adapts the runner to the queue's Job interface.
type BacktestJob struct {
	runner *BacktestRunner
}

func NewBacktestJob(runner *BacktestRunner) *BacktestJob { return &BacktestJob{runner: runner} }

func (j *BacktestJob) Name() string { return "backtest_runner" }
func (j *BacktestJob) Type() string { return BacktestJobType }

func (j *BacktestJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[backtestJobPayload](payload)
	if err != nil {
		return fmt.Errorf("parse backtest payload: %w", err)
	}
	return j.runner.ExecuteJob(ctx, p.JobID, p.Request)
}

var _ queue.Job = (*BacktestJob)(nil)
