package core

import "time"

const nanosPerSecond = 1_000_000_000

// ToNanos converts a timestamp in seconds to integer nanoseconds,
// truncating toward zero.
func ToNanos(sec float64) int64 {
	return int64(sec * nanosPerSecond)
}

// ToStamp splits integer nanoseconds into whole seconds and the
// remaining nanoseconds in [0, 1e9).
func ToStamp(ns int64) (sec int64, nsec int64) {
	return ns / nanosPerSecond, ns % nanosPerSecond
}

// ThisOrNow returns the first provided timestamp, or the current
// wall-clock time in seconds when none is given.
func ThisOrNow(stamp ...float64) float64 {
	if len(stamp) > 0 {
		return stamp[0]
	}
	return float64(time.Now().UnixNano()) / nanosPerSecond
}
