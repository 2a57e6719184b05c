// Package mcaplog records typed, timestamped telemetry simultaneously
// to the console, an MCAP container file and a live websocket stream
// for real-time visualization.
//
// Producers either hold their own instance through the service layer or
// use the process-wide logger exposed here:
//
//	mcaplog.Setup("run.mcap", mcaplog.LevelInfo)
//	defer mcaplog.Close()
//
//	mcaplog.Info("boot")
//	mcaplog.Publish("/pose", mcaplog.Wrap(pose), stamp)
package mcaplog

import (
	"mcaplog/internal/core"
	"mcaplog/internal/schema"
)

// Level re-exports the record severity scale.
type Level = core.Level

const (
	LevelUnknown = core.LevelUnknown
	LevelDebug   = core.LevelDebug
	LevelInfo    = core.LevelInfo
	LevelWarning = core.LevelWarning
	LevelError   = core.LevelError
	LevelFatal   = core.LevelFatal
)

// Message is the capability a publishable record type must expose.
type Message = schema.Message

// Wrap makes any JSON-serializable value publishable under its type's
// derived schema.
func Wrap(v any) Message {
	return schema.Wrap(v)
}

// Publish writes one record to a topic of the process-wide logger,
// creating the logger with default settings when none exists. The
// optional stamp is in seconds; it defaults to the current time.
func Publish(topic string, msg Message, stamp ...float64) error {
	t, err := instance()
	if err != nil {
		return err
	}
	return t.Publish(topic, msg, core.ThisOrNow(stamp...))
}

// Log prints a message to the console and the log topic of the
// process-wide logger.
func Log(msg string, level Level, stamp ...float64) error {
	t, err := instance()
	if err != nil {
		return err
	}
	return t.Log(msg, core.ThisOrNow(stamp...), level)
}

// Debug logs with the debug level.
func Debug(msg string, stamp ...float64) error {
	return Log(msg, LevelDebug, stamp...)
}

// Info logs with the info level.
func Info(msg string, stamp ...float64) error {
	return Log(msg, LevelInfo, stamp...)
}

// Warning logs with the warning level.
func Warning(msg string, stamp ...float64) error {
	return Log(msg, LevelWarning, stamp...)
}

// Error logs with the error level.
func Error(msg string, stamp ...float64) error {
	return Log(msg, LevelError, stamp...)
}

// Fatal logs with the fatal level.
func Fatal(msg string, stamp ...float64) error {
	return Log(msg, LevelFatal, stamp...)
}
