package game

import "time"

// Wire timestamps arrive in milliseconds, internal bookkeeping runs in
// seconds. Anything above this threshold cannot be a second-resolution epoch
// value, so it is treated as milliseconds.
const msEpochThreshold = 1e10

// NormalizeTimestamp converts a wire timestamp to seconds. Already-normalized
// values pass through unchanged, so the function is idempotent.
func NormalizeTimestamp(t float64) float64 {
	if t > msEpochThreshold {
		return t / 1000
	}
	return t
}

// Now returns the current wall clock as seconds since the epoch.
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// FormatClock renders a second-resolution timestamp as HH:MM:SS local time.
func FormatClock(sec float64) string {
	n := int64(sec * 1e9)
	return time.Unix(0, n).Format("15:04:05")
}
