package http

import (
	"time"

	"SentiTrade/pkg/util"
)

// ParseTime accepts RFC3339 timestamps or unix seconds.
func ParseTime(s string) (time.Time, bool) { return util.ParseTime(s) }
