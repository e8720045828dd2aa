package models

import "time"

// SignalStatus is the lifecycle state of a trading signal.
type SignalStatus string

const (
	StatusIdle       SignalStatus = "IDLE"
	StatusEvaluating SignalStatus = "EVALUATING"
	StatusActive     SignalStatus = "ACTIVE"
	StatusAccepted   SignalStatus = "ACCEPTED"
	StatusDismissed  SignalStatus = "DISMISSED"
	StatusExpired    SignalStatus = "EXPIRED"
)

// Terminal reports whether the status admits no further transitions.
func (s SignalStatus) Terminal() bool {
	switch s {
	case StatusAccepted, StatusDismissed, StatusExpired:
		return true
	default:
		return false
	}
}

// SignalAction is the trade direction of a signal.
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
)

// DivergenceKind classifies a price/sentiment divergence.
type DivergenceKind string

const (
	DivergenceBullish DivergenceKind = "bullish"
	DivergenceBearish DivergenceKind = "bearish"
)

// PricePoint is one sample of an asset price series.
type PricePoint struct {
	Timestamp time.Time
	Value     float64
}

// SentimentPoint is one sample of an asset sentiment series.
// Score is on the 0-100 scale; TrustedSources counts vetted publishers
// contributing to the sample.
type SentimentPoint struct {
	Timestamp      time.Time
	Score          float64
	TrustedSources int
}

// DivergenceEvent is a detected price/sentiment divergence at one index of
// an aligned series pair.
type DivergenceEvent struct {
	Index               int
	Timestamp           time.Time
	Kind                DivergenceKind
	PriceChangePct      float64
	SentimentChangePts  float64
	ReversalProbability float64
}

// PositionPlan is the sized position for a candidate signal.
type PositionPlan struct {
	Quantity         float64 `json:"quantity"`
	EntryPrice       float64 `json:"entry_price"`
	StopLoss         float64 `json:"stop_loss"`
	TakeProfit       float64 `json:"take_profit"`
	RiskBudgetUSD    float64 `json:"risk_budget_usd"`
	MaxLossUSD       float64 `json:"max_loss_usd"`
	MaxGainUSD       float64 `json:"max_gain_usd"`
	PositionValueUSD float64 `json:"position_value_usd"`
	PortfolioPct     float64 `json:"portfolio_pct"`
	RiskRewardRatio  float64 `json:"risk_reward_ratio"`
	Quality          string  `json:"quality"`
}

// Verdict is the risk/reward evaluation outcome for a candidate signal.
type Verdict struct {
	Accept       bool    `json:"accept"`
	QualityScore float64 `json:"quality_score"`
	Ratio        float64 `json:"ratio"`
	WinRate      float64 `json:"win_rate"`
	Reason       string  `json:"reason"`
}

// PatternHit names a recognized price/sentiment pattern.
type PatternHit struct {
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// Signal is a generated trading signal with its sizing and lifecycle state.
type Signal struct {
	ID           string           `json:"id"`
	Asset        string           `json:"asset"`
	Action       SignalAction     `json:"action"`
	Status       SignalStatus     `json:"status"`
	Confidence   float64          `json:"confidence"`
	Entry        float64          `json:"entry"`
	StopLoss     float64          `json:"stop_loss"`
	TakeProfit   float64          `json:"take_profit"`
	Position     *PositionPlan    `json:"position,omitempty"`
	Divergence   *DivergenceEvent `json:"-"`
	Verdict      *Verdict         `json:"verdict,omitempty"`
	Patterns     []string         `json:"patterns,omitempty"`
	Correlation  float64          `json:"correlation"`
	Reasoning    string           `json:"reasoning"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`
	StatusReason string           `json:"status_reason,omitempty"`
}

// SignalEvent is published to Kafka on every lifecycle transition.
type SignalEvent struct {
	SignalID  string       `json:"signal_id"`
	Asset     string       `json:"asset"`
	From      SignalStatus `json:"from"`
	To        SignalStatus `json:"to"`
	Reason    string       `json:"reason,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Tick is one raw price tick from the ingest plane. Timestamp is unix seconds.
type Tick struct {
	Asset     string  `json:"asset"`
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
}

// SentimentSample is one raw sentiment sample from the ingest plane.
// Timestamp is unix seconds, Score is 0-100.
type SentimentSample struct {
	Asset          string  `json:"asset"`
	Timestamp      int64   `json:"timestamp"`
	Score          float64 `json:"score"`
	TrustedSources int     `json:"trusted_sources"`
	Source         string  `json:"source,omitempty"`
}

// Candle represents an OHLCV record used by the backtester and history reads.
type Candle struct {
	Bucket time.Time
	Asset  string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
