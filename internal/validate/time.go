package validate

import (
	"strconv"
	"time"
)

// ParseTime accepts either an RFC3339 timestamp or a unix-seconds
// integer for the startTime/endTime graph-filter parameters (spec.md
// §6), returning nil on an empty or unparseable value rather than an
// error — these are non-critical query bounds.
func ParseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.Unix(sec, 0).UTC()
		return &t
	}
	return nil
}
