package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToNanos(t *testing.T) {
	testCases := []struct {
		name     string
		sec      float64
		expected int64
	}{
		{name: "Zero", sec: 0, expected: 0},
		{name: "WholeSecond", sec: 1.0, expected: 1_000_000_000},
		{name: "Fraction", sec: 1.5, expected: 1_500_000_000},
		{name: "Millis", sec: 0.25, expected: 250_000_000},
		{name: "Large", sec: 1_700_000_000, expected: 1_700_000_000_000_000_000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ToNanos(tc.sec))
		})
	}
}

func TestToStamp(t *testing.T) {
	sec, nsec := ToStamp(1_500_000_000)
	assert.Equal(t, int64(1), sec)
	assert.Equal(t, int64(500_000_000), nsec)

	sec, nsec = ToStamp(999_999_999)
	assert.Equal(t, int64(0), sec)
	assert.Equal(t, int64(999_999_999), nsec)
}

func TestStampRoundTrip(t *testing.T) {
	// Splitting the nanosecond form must reconstruct the original
	// timestamp to within one nanosecond.
	for _, stamp := range []float64{0, 0.1, 1.0, 3.14159, 42.000000001, 1_700_000_000.5} {
		ns := ToNanos(stamp)
		sec, nsec := ToStamp(ns)
		rebuilt := float64(sec) + float64(nsec)/1e9

		assert.InDelta(t, stamp, rebuilt, 1e-9+stamp*1e-15, "stamp %v", stamp)
		assert.GreaterOrEqual(t, nsec, int64(0))
		assert.Less(t, nsec, int64(1_000_000_000))
	}
}

func TestThisOrNow(t *testing.T) {
	t.Run("Provided", func(t *testing.T) {
		assert.Equal(t, 12.5, ThisOrNow(12.5))
	})

	t.Run("DefaultsToNow", func(t *testing.T) {
		before := float64(time.Now().UnixNano()) / 1e9
		got := ThisOrNow()
		after := float64(time.Now().UnixNano()) / 1e9

		assert.GreaterOrEqual(t, got, before)
		assert.LessOrEqual(t, got, after)
	})
}
