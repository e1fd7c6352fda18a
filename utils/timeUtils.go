package utils

import "time"

// MillisToDuration converts a millisecond config value to a time.Duration.
func MillisToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// AbsDuration is the magnitude of the gap between two instants.
func AbsDuration(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
