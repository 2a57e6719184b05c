package schema

import (
	"encoding/json"
	"fmt"

	"mcaplog/internal/core"
)

// LogRecord is the fixed payload of the log channel. Its schema is the
// shared constant, not a derived one, so both the file and network
// sinks advertise the exact same descriptor.
type LogRecord struct {
	Sec     int64
	NSec    int64
	Level   core.Level
	Message string
}

// NewLogRecord stamps a log message. The timestamp is split into the
// (sec, nsec) pair the log schema requires.
func NewLogRecord(msg string, stamp float64, level core.Level) LogRecord {
	sec, nsec := core.ToStamp(core.ToNanos(stamp))
	return LogRecord{
		Sec:     sec,
		NSec:    nsec,
		Level:   level,
		Message: msg,
	}
}

func (r LogRecord) Descriptor() Descriptor {
	return Descriptor{
		Name:     core.LogSchemaName,
		Encoding: core.SchemaEncoding,
		Data:     core.LogSchema,
	}
}

func (r LogRecord) MarshalRecord() ([]byte, error) {
	wire := struct {
		Timestamp struct {
			Sec  int64 `json:"sec"`
			NSec int64 `json:"nsec"`
		} `json:"timestamp"`
		Level   int    `json:"level"`
		Message string `json:"message"`
		Name    string `json:"name"`
		File    string `json:"file"`
		Line    int    `json:"line"`
	}{
		Level:   int(r.Level),
		Message: r.Message,
		Name:    core.SourceName,
		File:    "/dev/null",
		Line:    0,
	}
	wire.Timestamp.Sec = r.Sec
	wire.Timestamp.NSec = r.NSec

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode log record: %w", err)
	}
	return data, nil
}
