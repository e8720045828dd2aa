package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SentiTrade/internal/domain/models"
	domrepo "SentiTrade/internal/domain/repository"
	pkgch "SentiTrade/pkg/clickhouse"
	applogger "SentiTrade/pkg/logger"
)

// CHSeriesStore serves historical candles and sentiment from ClickHouse.
// Candles are aggregated from raw ticks at query time.
type CHSeriesStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHSeriesStore(ch *pkgch.Client) *CHSeriesStore {
	return &CHSeriesStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHSeriesStore) SetLogger(l *applogger.Logger) { s.l = l }

const candlesQuery = `
    SELECT
        toStartOfInterval(ts, INTERVAL %d SECOND) AS bucket,
        asset,
        argMin(price, ts) AS open,
        max(price)        AS high,
        min(price)        AS low,
        argMax(price, ts) AS close,
        sum(volume)       AS vol
    FROM sentitrade.ticks
    WHERE asset = ? AND ts >= ? AND ts <= ?
    GROUP BY bucket, asset
    ORDER BY bucket ASC
`

func (s *CHSeriesStore) GetCandles(ctx context.Context, asset string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	q := fmt.Sprintf(candlesQuery, int(tf.Duration().Seconds()))
	rows, err := s.db.QueryContext(ctx, q, asset, from, to)
	if err != nil {
		s.logErr("get_candles", asset, err)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 1024)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Asset, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logErr("get_candles", asset, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.logErr("get_candles", asset, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_candles ok",
			applogger.String("asset", asset),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

const latestCandlesQuery = `
    SELECT bucket, asset, open, high, low, close, vol FROM (
        SELECT
            toStartOfInterval(ts, INTERVAL %d SECOND) AS bucket,
            asset,
            argMin(price, ts) AS open,
            max(price)        AS high,
            min(price)        AS low,
            argMax(price, ts) AS close,
            sum(volume)       AS vol
        FROM sentitrade.ticks
        WHERE asset = ?
        GROUP BY bucket, asset
        ORDER BY bucket DESC
        LIMIT ?
    )
    ORDER BY bucket ASC
`

func (s *CHSeriesStore) GetLatestNCandles(ctx context.Context, asset string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	q := fmt.Sprintf(latestCandlesQuery, int(tf.Duration().Seconds()))
	rows, err := s.db.QueryContext(ctx, q, asset, n)
	if err != nil {
		s.logErr("latest_candles", asset, err)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Asset, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logErr("latest_candles", asset, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.logErr("latest_candles", asset, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

const sentimentQuery = `
    SELECT ts, score, trusted_sources
    FROM sentitrade.sentiment
    WHERE asset = ? AND ts >= ? AND ts <= ?
    ORDER BY ts ASC
`

func (s *CHSeriesStore) GetSentiment(ctx context.Context, asset string, from, to time.Time) ([]models.SentimentPoint, error) {
	rows, err := s.db.QueryContext(ctx, sentimentQuery, asset, from, to)
	if err != nil {
		s.logErr("get_sentiment", asset, err)
		return nil, fmt.Errorf("get sentiment: %w", err)
	}
	defer rows.Close()
	return scanSentiment(rows, false)
}

const latestSentimentQuery = `
    SELECT ts, score, trusted_sources
    FROM sentitrade.sentiment
    WHERE asset = ?
    ORDER BY ts DESC
    LIMIT ?
`

func (s *CHSeriesStore) GetLatestNSentiment(ctx context.Context, asset string, n int) ([]models.SentimentPoint, error) {
	rows, err := s.db.QueryContext(ctx, latestSentimentQuery, asset, n)
	if err != nil {
		s.logErr("latest_sentiment", asset, err)
		return nil, fmt.Errorf("get latest sentiment: %w", err)
	}
	defer rows.Close()
	return scanSentiment(rows, true)
}

func scanSentiment(rows *sql.Rows, reverse bool) ([]models.SentimentPoint, error) {
	out := make([]models.SentimentPoint, 0, 256)
	for rows.Next() {
		var p models.SentimentPoint
		var trusted uint16
		if err := rows.Scan(&p.Timestamp, &p.Score, &trusted); err != nil {
			return nil, fmt.Errorf("scan sentiment: %w", err)
		}
		p.TrustedSources = int(trusted)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (s *CHSeriesStore) logErr(op, asset string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error("clickhouse "+op+" error",
		applogger.String("asset", asset),
		applogger.Error(err),
	)
}

var _ domrepo.SeriesStore = (*CHSeriesStore)(nil)
