package models

import "time"

// BacktestJobState tracks an asynchronous backtest run.
type BacktestJobState string

const (
	BacktestQueued   BacktestJobState = "queued"
	BacktestRunning  BacktestJobState = "running"
	BacktestDone     BacktestJobState = "done"
	BacktestFailed   BacktestJobState = "failed"
	BacktestCanceled BacktestJobState = "canceled"
)

// BacktestTrade is one simulated round trip.
type BacktestTrade struct {
	Asset      string       `json:"asset"`
	Action     SignalAction `json:"action"`
	EntryTime  time.Time    `json:"entry_time"`
	ExitTime   time.Time    `json:"exit_time"`
	EntryPrice float64      `json:"entry_price"`
	ExitPrice  float64      `json:"exit_price"`
	Quantity   float64      `json:"quantity"`
	PnL        float64      `json:"pnl"`
	ExitReason string       `json:"exit_reason"` // stop_loss, take_profit, expired, horizon_end
}

// EquityPoint is one mark-to-market sample of the equity curve.
type EquityPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// BacktestResult aggregates a finished simulation.
type BacktestResult struct {
	Asset          string          `json:"asset"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	TotalTrades    int             `json:"total_trades"`
	Wins           int             `json:"wins"`
	Losses         int             `json:"losses"`
	WinRate        float64         `json:"win_rate"`
	NetPnL         float64         `json:"net_pnl"`
	MaxDrawdown    float64         `json:"max_drawdown"`
	VaR95          float64         `json:"var_95"`
	FinalEquity    float64         `json:"final_equity"`
	TotalReturnPct float64         `json:"total_return_pct"`
	EquityCurve    []EquityPoint   `json:"equity_curve,omitempty"`
	Trades         []BacktestTrade `json:"trades,omitempty"`
	BarsSimulated  int             `json:"bars_simulated"`
	Seed           int64           `json:"seed"`
}

// BacktestProgress is the job status document stored in cache while an
// asynchronous run executes.
type BacktestProgress struct {
	JobID     string           `json:"job_id"`
	Asset     string           `json:"asset"`
	State     BacktestJobState `json:"state"`
	BarsDone  int              `json:"bars_done"`
	BarsTotal int              `json:"bars_total"`
	Result    *BacktestResult  `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}
