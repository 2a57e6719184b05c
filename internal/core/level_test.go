package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelOrdering(t *testing.T) {
	levels := []Level{LevelUnknown, LevelDebug, LevelInfo, LevelWarning, LevelError, LevelFatal}

	for i := 1; i < len(levels); i++ {
		assert.Less(t, levels[i-1], levels[i],
			"%s must order below %s", levels[i-1], levels[i])
	}
}

func TestConsoleLevel(t *testing.T) {
	t.Run("TotalOverDefinedLevels", func(t *testing.T) {
		var prev int64 = -1 << 62
		for l := LevelUnknown; l <= LevelFatal; l++ {
			mapped, err := ConsoleLevel(l)
			require.NoError(t, err, "level %s", l)
			assert.GreaterOrEqual(t, mapped, prev,
				"console mapping must preserve the level order at %s", l)
			prev = mapped
		}
	})

	t.Run("RejectsOutOfRange", func(t *testing.T) {
		for _, raw := range []int{-1, 6, 42} {
			_, err := ConsoleLevel(Level(raw))
			require.Error(t, err)
			var invalid *InvalidLevelError
			assert.ErrorAs(t, err, &invalid)
			assert.Equal(t, raw, invalid.Level)
		}
	})
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expected    Level
		expectError bool
	}{
		{name: "Unknown", input: "unknown", expected: LevelUnknown},
		{name: "Debug", input: "debug", expected: LevelDebug},
		{name: "Info", input: "info", expected: LevelInfo},
		{name: "WarnAlias", input: "warn", expected: LevelWarning},
		{name: "Warning", input: "warning", expected: LevelWarning},
		{name: "Error", input: "error", expected: LevelError},
		{name: "Fatal", input: "fatal", expected: LevelFatal},
		{name: "MixedCase", input: "Info", expected: LevelInfo},
		{name: "Invalid", input: "verbose", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			level, err := ParseLevel(tc.input)
			if tc.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, level)
			}
		})
	}
}

func TestLevelValid(t *testing.T) {
	assert.True(t, LevelUnknown.Valid())
	assert.True(t, LevelFatal.Valid())
	assert.False(t, Level(-1).Valid())
	assert.False(t, Level(6).Valid())
}
