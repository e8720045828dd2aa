package repository

import (
	"context"
	"time"

	"SentiTrade/internal/domain/models"
)

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
)

// SeriesStore provides read access to historical candles and sentiment for
// the engine and the backtester.
type SeriesStore interface {
	GetCandles(ctx context.Context, asset string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, asset string, n int, tf Timeframe) ([]models.Candle, error)
	GetSentiment(ctx context.Context, asset string, from, to time.Time) ([]models.SentimentPoint, error)
	GetLatestNSentiment(ctx context.Context, asset string, n int) ([]models.SentimentPoint, error)
}
