package engine

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so callers and the HTTP layer can map them
// without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindInsufficientData
	KindInvalidRiskParameters
	KindStaleFeed
	KindSimulationTimeout
	KindInvalidConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindInsufficientData:
		return "insufficient_data"
	case KindInvalidRiskParameters:
		return "invalid_risk_parameters"
	case KindStaleFeed:
		return "stale_feed"
	case KindSimulationTimeout:
		return "simulation_timeout"
	case KindInvalidConfiguration:
		return "invalid_configuration"
	default:
		return "unknown"
	}
}

// Error is the engine error type. Op names the failing operation.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an engine error.
func E(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is an engine error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// KindOf returns the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
