package repository

import (
	"context"
	"time"

	"SentiTrade/internal/domain/models"
)

// SentimentStream is a live feed of sentiment samples for subscribed assets.
type SentimentStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.SentimentSample, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher emits signal lifecycle events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, ev *models.SignalEvent) error
	Close() error
}

// TickWriter persists raw ticks and sentiment samples.
type TickWriter interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreTicks(ctx context.Context, ticks []*models.Tick) error
	StoreSentiment(ctx context.Context, samples []*models.SentimentSample) error
	Health(ctx context.Context) error
	Close() error
}

// SignalStore persists signals and serves history and win-rate reads.
type SignalStore interface {
	Save(ctx context.Context, s *models.Signal) error
	UpdateStatus(ctx context.Context, id string, status models.SignalStatus, reason string, at time.Time) error
	Latest(ctx context.Context, asset string) (*models.Signal, error)
	History(ctx context.Context, asset string, limit int) ([]*models.Signal, error)
	// WinRate returns the fraction of the last window closed signals for
	// asset that expired or were accepted in profit, and the sample count.
	WinRate(ctx context.Context, asset string, window int) (float64, int, error)
}

// Metrics records engine and ingest measurements.
type Metrics interface {
	RecordSampleIngested(kind, asset string)
	RecordSignalTransition(asset, from, to string)
	RecordError(kind string)
	RecordLastPrice(asset string, price float64)
	RecordLastSentiment(asset string, score float64)
	RecordLatency(op string, seconds float64)
	RecordBacktestBars(n int)
}
