package core

import "time"

// The log channel exists on every sink and is registered eagerly so the
// first log call pays no registration cost.
const (
	LogTopic      = "/log"
	LogSchemaName = "foxglove.Log"

	// SchemaEncoding and MessageEncoding apply to every channel this
	// logger registers, not just the log channel.
	SchemaEncoding  = "jsonschema"
	MessageEncoding = "json"

	// SourceName tags log records with the producing process.
	SourceName = "mcaplog"
)

// Viewer server and worker defaults.
const (
	DefaultViewerHost = "0.0.0.0"
	DefaultViewerPort = 8765
	DefaultViewerName = "mcaplog"

	DefaultQueueCapacity = 8192
	DefaultPollInterval  = 200 * time.Millisecond
)

// LogSchema is the jsonschema body of the log channel, shared by the
// file and network sinks.
var LogSchema = []byte(`{
  "title": "foxglove.Log",
  "description": "A log message",
  "type": "object",
  "properties": {
    "timestamp": {
      "type": "object",
      "title": "time",
      "properties": {
        "sec": {
          "type": "integer",
          "minimum": 0
        },
        "nsec": {
          "type": "integer",
          "minimum": 0,
          "maximum": 999999999
        }
      },
      "description": "Timestamp of log message"
    },
    "level": {
      "title": "foxglove.Level",
      "description": "Log level",
      "oneOf": [
        {"title": "UNKNOWN", "const": 0},
        {"title": "DEBUG", "const": 1},
        {"title": "INFO", "const": 2},
        {"title": "WARNING", "const": 3},
        {"title": "ERROR", "const": 4},
        {"title": "FATAL", "const": 5}
      ]
    },
    "message": {
      "type": "string",
      "description": "Log message"
    },
    "name": {
      "type": "string",
      "description": "Process or node name"
    },
    "file": {
      "type": "string",
      "description": "Filename"
    },
    "line": {
      "type": "integer",
      "minimum": 0,
      "description": "Line number in the file"
    }
  }
}`)
