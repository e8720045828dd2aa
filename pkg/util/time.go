package util

import (
	"strconv"
	"time"
)

var timeLayouts = []string{time.RFC3339, time.RFC3339Nano}

// ParseTime accepts RFC3339 timestamps or unix seconds. The second return
// value reports whether the input was understood.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0), true
	}
	return time.Time{}, false
}
