package models

import "time"

// Evaluation represents a consolidated view of one engine pass over an asset.
// Note: no transport (json/http) concerns here.
type Evaluation struct {
	Asset       string
	Timestamp   time.Time
	Divergence  *DivergenceEvent
	Patterns    []PatternHit
	Correlation float64
	Position    *PositionPlan
	Verdict     *Verdict
	Signal      *Signal
	Errors      map[string]string
}
