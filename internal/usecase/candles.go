package usecase

import (
	"context"
	"fmt"
	"time"

	"SentiTrade/internal/domain/models"
	drepo "SentiTrade/internal/domain/repository"
	"SentiTrade/internal/services/features"
)

// CandlesUseCase provides business logic for retrieving candles.
type CandlesUseCase struct {
	store drepo.SeriesStore
}

func NewCandlesUseCase(store drepo.SeriesStore) *CandlesUseCase {
	return &CandlesUseCase{store: store}
}

type GetCandlesParams struct {
	Asset     string
	From      time.Time
	To        time.Time
	Timeframe drepo.Timeframe
	Limit     int
}

type GetCandlesResult struct {
	Asset       string          `json:"asset"`
	Timeframe   string          `json:"timeframe"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Count       int             `json:"count"`
	RealizedVol float64         `json:"realized_vol"`
	Candles     []models.Candle `json:"candles"`
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if p.Asset == "" {
		return nil, fmt.Errorf("asset required")
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}
	from, to := features.AlignFromTo(p.From, p.To, string(p.Timeframe))

	candles, err := uc.store.GetCandles(ctx, p.Asset, from, to, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	if len(candles) > p.Limit {
		candles = candles[:p.Limit]
	}

	// Annualized realized vol over the trailing window, for dashboard display.
	rets := features.ComputeLogReturns(candles)
	window := 60
	if len(rets) < window {
		window = len(rets)
	}
	vol := features.RealizedVolatility(rets, window, features.BarsPerYearForTF(string(p.Timeframe)))

	return &GetCandlesResult{
		Asset:       p.Asset,
		Timeframe:   string(p.Timeframe),
		From:        from,
		To:          to,
		Count:       len(candles),
		RealizedVol: vol,
		Candles:     candles,
	}, nil
}
