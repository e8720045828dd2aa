package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"SentiTrade/internal/domain/models"
	domrepo "SentiTrade/internal/domain/repository"
	pkgch "SentiTrade/pkg/clickhouse"
)

// ClickHouseTickWriter persists raw ticks and sentiment samples.
type ClickHouseTickWriter struct {
	ch *pkgch.Client
	db *sql.DB
}

func NewClickHouseTickWriter(ch *pkgch.Client) domrepo.TickWriter {
	return &ClickHouseTickWriter{ch: ch, db: ch.DB()}
}

func (w *ClickHouseTickWriter) Init(ctx context.Context) error {
	return w.ch.InitSchema(ctx, SchemaStatements)
}

func (w *ClickHouseTickWriter) StoreTicks(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, t := range ticks[start:end] {
			if t == nil || t.Asset == "" || t.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, time.Unix(t.Timestamp, 0), t.Asset, t.Price, t.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := "INSERT INTO sentitrade.ticks (ts, asset, price, volume) VALUES " + strings.Join(values, ",")
		if _, err := w.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (w *ClickHouseTickWriter) StoreSentiment(ctx context.Context, samples []*models.SentimentSample) error {
	if len(samples) == 0 {
		return nil
	}
	values := make([]string, 0, len(samples))
	args := make([]interface{}, 0, len(samples)*5)
	for _, s := range samples {
		if s == nil || s.Asset == "" || s.Timestamp == 0 {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?)")
		args = append(args, time.Unix(s.Timestamp, 0), s.Asset, s.Score, uint16(s.TrustedSources), s.Source)
	}
	if len(values) == 0 {
		return nil
	}
	q := "INSERT INTO sentitrade.sentiment (ts, asset, score, trusted_sources, source) VALUES " + strings.Join(values, ",")
	_, err := w.db.ExecContext(ctx, q, args...)
	return err
}

func (w *ClickHouseTickWriter) Health(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

func (w *ClickHouseTickWriter) Close() error {
	return nil // pool owned by pkg client
}
