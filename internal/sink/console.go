package sink

import (
	"fmt"
	"sync/atomic"
	"time"

	"mcaplog/internal/core"
	"mcaplog/internal/schema"

	"github.com/lixenwraith/log"
)

// ConsoleSink writes log lines to stdout through its own logger,
// gated at the configured level. Console output is synchronous and
// never fails: a record that cannot be rendered is logged best-effort.
type ConsoleSink struct {
	logger    *log.Logger
	startTime time.Time
	closed    atomic.Bool

	totalRecords atomic.Uint64
	lastRecord   atomic.Value // time.Time
}

func NewConsoleSink(level core.Level) (*ConsoleSink, error) {
	consoleLevel, err := core.ConsoleLevel(level)
	if err != nil {
		return nil, err
	}

	logger := log.NewLogger()
	if err := logger.ApplyConfigString(
		"disable_file=true",
		"enable_console=true",
		"console_target=stdout",
		fmt.Sprintf("level=%d", consoleLevel),
	); err != nil {
		return nil, fmt.Errorf("initialize console logger: %w", err)
	}

	c := &ConsoleSink{
		logger:    logger,
		startTime: time.Now(),
	}
	c.lastRecord.Store(time.Time{})
	return c, nil
}

// Logger exposes the underlying logger so other components can share
// it for their own diagnostics.
func (c *ConsoleSink) Logger() *log.Logger {
	return c.logger
}

// Publish counts the record but does not render structured payloads;
// the console carries log lines only.
func (c *ConsoleSink) Publish(topic string, msg schema.Message, stamp float64) error {
	if c.closed.Load() {
		return nil
	}
	c.totalRecords.Add(1)
	c.lastRecord.Store(time.Now())
	return nil
}

func (c *ConsoleSink) Log(msg string, stamp float64, level core.Level) error {
	if c.closed.Load() {
		return nil
	}
	c.totalRecords.Add(1)
	c.lastRecord.Store(time.Now())

	stampText := fmt.Sprintf("%.3f", stamp)
	switch level {
	case core.LevelUnknown, core.LevelDebug:
		c.logger.Debug("msg", msg, "stamp", stampText)
	case core.LevelInfo:
		c.logger.Info("msg", msg, "stamp", stampText)
	case core.LevelWarning:
		c.logger.Warn("msg", msg, "stamp", stampText)
	case core.LevelError:
		c.logger.Error("msg", msg, "stamp", stampText)
	case core.LevelFatal:
		c.logger.Error("msg", msg, "stamp", stampText, "level", "fatal")
	default:
		// out-of-range values still get printed
		c.logger.Info("msg", msg, "stamp", stampText, "level", int(level))
	}
	return nil
}

func (c *ConsoleSink) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if err := c.logger.Shutdown(2 * time.Second); err != nil {
		return fmt.Errorf("shut down console logger: %w", err)
	}
	return nil
}

func (c *ConsoleSink) Stats() Stats {
	lastRecord, _ := c.lastRecord.Load().(time.Time)
	return Stats{
		Type:       "console",
		Records:    c.totalRecords.Load(),
		LastRecord: lastRecord,
		StartTime:  c.startTime,
		Details:    map[string]any{},
	}
}
