package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"SentiTrade/internal/domain/models"
	domrepo "SentiTrade/internal/domain/repository"
	pkgch "SentiTrade/pkg/clickhouse"
)

// ErrSignalNotFound is returned when no persisted signal matches a lookup.
var ErrSignalNotFound = errors.New("signal not found")

// CHSignalStore persists signals as versioned rows; the latest row per id
// wins (ReplacingMergeTree by updated_at).
type CHSignalStore struct {
	db *sql.DB
}

func NewCHSignalStore(ch *pkgch.Client) domrepo.SignalStore {
	return &CHSignalStore{db: ch.DB()}
}

const insertSignal = `
    INSERT INTO sentitrade.signals
        (id, asset, action, status, status_reason, confidence, entry, stop_loss,
         take_profit, quantity, rr_ratio, quality_score, reasoning, created_at,
         expires_at, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (s *CHSignalStore) Save(ctx context.Context, sig *models.Signal) error {
	if sig == nil || sig.ID == "" {
		return fmt.Errorf("signal id required")
	}
	var qty, ratio, quality float64
	if sig.Position != nil {
		qty = sig.Position.Quantity
		ratio = sig.Position.RiskRewardRatio
	}
	if sig.Verdict != nil {
		quality = sig.Verdict.QualityScore
	}
	_, err := s.db.ExecContext(ctx, insertSignal,
		sig.ID, sig.Asset, string(sig.Action), string(sig.Status), sig.StatusReason,
		sig.Confidence, sig.Entry, sig.StopLoss, sig.TakeProfit,
		qty, ratio, quality, sig.Reasoning,
		sig.CreatedAt, sig.ExpiresAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save signal: %w", err)
	}
	return nil
}

// UpdateStatus appends a new version row carrying the transition. Unknown ids
// fail so callers notice drift between memory and store.
func (s *CHSignalStore) UpdateStatus(ctx context.Context, id string, status models.SignalStatus, reason string, at time.Time) error {
	cur, err := s.byID(ctx, id)
	if err != nil {
		return err
	}
	cur.Status = status
	cur.StatusReason = reason
	cur.ResolvedAt = &at
	return s.Save(ctx, cur)
}

const selectSignal = `
    SELECT id, asset, action, status, status_reason, confidence, entry,
           stop_loss, take_profit, quantity, rr_ratio, quality_score,
           reasoning, created_at, expires_at
    FROM sentitrade.signals FINAL
`

func (s *CHSignalStore) Latest(ctx context.Context, asset string) (*models.Signal, error) {
	q := selectSignal + ` WHERE asset = ? ORDER BY created_at DESC LIMIT 1`
	sig, err := s.scanOne(s.db.QueryRowContext(ctx, q, asset))
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func (s *CHSignalStore) History(ctx context.Context, asset string, limit int) ([]*models.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	q := selectSignal + ` WHERE asset = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, asset, limit)
	if err != nil {
		return nil, fmt.Errorf("signal history: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Signal, 0, limit)
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

const winRateQuery = `
    SELECT
        countIf(status = 'ACCEPTED') AS wins,
        count()                      AS total
    FROM (
        SELECT status
        FROM sentitrade.signals FINAL
        WHERE asset = ? AND status IN ('ACCEPTED', 'DISMISSED', 'EXPIRED')
        ORDER BY created_at DESC
        LIMIT ?
    )
`

// WinRate reads accepted outcomes over the last window resolved signals.
func (s *CHSignalStore) WinRate(ctx context.Context, asset string, window int) (float64, int, error) {
	if window <= 0 {
		window = 50
	}
	var wins, total uint64
	if err := s.db.QueryRowContext(ctx, winRateQuery, asset, window).Scan(&wins, &total); err != nil {
		return 0, 0, fmt.Errorf("win rate: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(wins) / float64(total), int(total), nil
}

func (s *CHSignalStore) byID(ctx context.Context, id string) (*models.Signal, error) {
	q := selectSignal + ` WHERE id = ? LIMIT 1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, id))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *CHSignalStore) scanOne(row *sql.Row) (*models.Signal, error) {
	sig, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSignalNotFound
	}
	return sig, err
}

func scanSignal(r rowScanner) (*models.Signal, error) {
	var sig models.Signal
	var action, status string
	var pos models.PositionPlan
	var verdict models.Verdict
	if err := r.Scan(
		&sig.ID, &sig.Asset, &action, &status, &sig.StatusReason,
		&sig.Confidence, &sig.Entry, &sig.StopLoss, &sig.TakeProfit,
		&pos.Quantity, &pos.RiskRewardRatio, &verdict.QualityScore,
		&sig.Reasoning, &sig.CreatedAt, &sig.ExpiresAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan signal: %w", err)
	}
	sig.Action = models.SignalAction(action)
	sig.Status = models.SignalStatus(status)
	if pos.Quantity > 0 {
		pos.EntryPrice = sig.Entry
		pos.StopLoss = sig.StopLoss
		pos.TakeProfit = sig.TakeProfit
		sig.Position = &pos
	}
	if verdict.QualityScore > 0 {
		sig.Verdict = &verdict
	}
	return &sig, nil
}
