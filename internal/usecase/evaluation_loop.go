package usecase

import (
	"context"
	"time"

	"SentiTrade/internal/services/engine"
	applogger "SentiTrade/pkg/logger"
)

// EvaluationLoop runs the generator for every configured asset on a fixed
// cadence, so signals appear from the ingested feeds without an API call.
type EvaluationLoop struct {
	gen      *SignalGenerator
	l        *applogger.Logger
	assets   []string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewEvaluationLoop(gen *SignalGenerator, l *applogger.Logger, assets []string, interval time.Duration) *EvaluationLoop {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &EvaluationLoop{
		gen:      gen,
		l:        l,
		assets:   assets,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the periodic evaluation goroutine.
func (e *EvaluationLoop) Start(ctx context.Context) {
	go e.run(ctx)
}

func (e *EvaluationLoop) run(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-ticker.C:
			for _, asset := range e.assets {
				if _, err := e.gen.Evaluate(ctx, asset); err != nil {
					// Thin or stale data is routine between samples.
					if e.l != nil && !engine.IsKind(err, engine.KindInsufficientData) && !engine.IsKind(err, engine.KindStaleFeed) {
						e.l.Warn("periodic evaluation failed",
							applogger.String("asset", asset),
							applogger.Error(err),
						)
					}
				}
			}
		}
	}
}

// Stop halts the loop and waits for the in-flight pass to finish.
func (e *EvaluationLoop) Stop() {
	close(e.stop)
	<-e.done
}
