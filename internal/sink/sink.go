package sink

import (
	"time"

	"mcaplog/internal/core"
	"mcaplog/internal/schema"
)

// Sink is a destination for telemetry records and log lines.
type Sink interface {
	// Publish writes one typed record to a topic. The stamp is in
	// seconds and is used as both logical and publish time.
	Publish(topic string, msg schema.Message, stamp float64) error

	// Log writes one log line on the dedicated log topic.
	Log(msg string, stamp float64, level core.Level) error

	// Close releases the sink. Safe to call more than once.
	Close() error

	// Stats returns sink statistics
	Stats() Stats
}

// Stats contains statistics about a sink
type Stats struct {
	Type       string
	Records    uint64
	LastRecord time.Time
	StartTime  time.Time
	Details    map[string]any
}
