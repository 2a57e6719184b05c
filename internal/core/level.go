package core

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/log"
)

// Level is the severity of a telemetry log record.
// The zero value means the producer did not classify the message.
type Level int

const (
	LevelUnknown Level = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelUnknown:
		return "unknown"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Valid reports whether l is one of the six defined levels.
func (l Level) Valid() bool {
	return l >= LevelUnknown && l <= LevelFatal
}

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "unknown":
		return LevelUnknown, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	default:
		return 0, fmt.Errorf("unknown level: %s", s)
	}
}

// ConsoleLevel maps a record level to the console logger's level scale.
// The console logger has no levels below debug or above error, so the
// edges collapse: unknown logs as debug, fatal logs as error.
func ConsoleLevel(l Level) (int64, error) {
	switch l {
	case LevelUnknown, LevelDebug:
		return int64(log.LevelDebug), nil
	case LevelInfo:
		return int64(log.LevelInfo), nil
	case LevelWarning:
		return int64(log.LevelWarn), nil
	case LevelError, LevelFatal:
		return int64(log.LevelError), nil
	default:
		return 0, &InvalidLevelError{Level: int(l)}
	}
}
