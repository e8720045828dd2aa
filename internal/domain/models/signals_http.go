package models

// Requests for the signal and backtest HTTP endpoints. Defined in domain for
// consistency and reuse.

type LatestSignalRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
}

type EvaluateRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
}

type SignalHistoryRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type CandlesRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
	From  string `query:"from" json:"from" validate:"required"`
	To    string `query:"to" json:"to" validate:"required"`
	TF    string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 5m"`
	Limit int    `query:"limit" json:"limit" default:"10000" validate:"gte=1,lte=50000"`
}

type BacktestRunRequest struct {
	Asset             string  `query:"asset" json:"asset" validate:"required"`
	From              string  `query:"from" json:"from" validate:"required"`
	To                string  `query:"to" json:"to" validate:"required"`
	TF                string  `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 5m"`
	PortfolioValueUSD float64 `query:"portfolio_value_usd" json:"portfolio_value_usd" default:"10000" validate:"gt=0"`
	RiskPct           float64 `query:"risk_pct" json:"risk_pct" default:"2" validate:"gte=1,lte=5"`
	TTLBars           int     `query:"ttl_bars" json:"ttl_bars" default:"30" validate:"gte=1,lte=10000"`
	Seed              int64   `query:"seed" json:"seed"`
	BootstrapSamples  int     `query:"bootstrap_samples" json:"bootstrap_samples" default:"1000" validate:"gte=1,lte=100000"`
	IncludeTrades     bool    `query:"include_trades" json:"include_trades"`
}
