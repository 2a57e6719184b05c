package service

import (
	"time"

	"mcaplog/internal/core"
	"mcaplog/internal/schema"
	"mcaplog/internal/sink"

	"github.com/lixenwraith/log"
)

// Options configures a Telemetry instance. An empty Path disables the
// file sink; the sink set is fixed for the lifetime of the instance.
type Options struct {
	Path     string
	Level    core.Level
	Compress bool

	ViewerHost    string
	ViewerPort    int
	ViewerName    string
	QueueCapacity int
	PollInterval  time.Duration
}

// Telemetry fans every call out to the active sinks: console (always),
// network (always) and file (only when a path was configured).
type Telemetry struct {
	console *sink.ConsoleSink
	network *sink.NetworkSink
	file    *sink.FileSink // nil without a configured path
	logger  *log.Logger
}

// New builds the sink set. On any sink failure the sinks already
// created are torn down before the error is returned.
func New(opts Options) (*Telemetry, error) {
	console, err := sink.NewConsoleSink(opts.Level)
	if err != nil {
		return nil, err
	}
	logger := console.Logger()

	network := sink.NewNetworkSink(sink.NetworkOptions{
		Host:          opts.ViewerHost,
		Port:          opts.ViewerPort,
		Name:          opts.ViewerName,
		QueueCapacity: opts.QueueCapacity,
		PollInterval:  opts.PollInterval,
	}, logger)

	var file *sink.FileSink
	if opts.Path != "" {
		file, err = sink.NewFileSink(opts.Path, opts.Compress, logger)
		if err != nil {
			network.Close()
			console.Close()
			return nil, err
		}
	}

	return &Telemetry{
		console: console,
		network: network,
		file:    file,
		logger:  logger,
	}, nil
}

// Publish writes one record to the file (if configured) and hands it to
// the network worker. Fail-fast: a file error skips the network leg.
func (t *Telemetry) Publish(topic string, msg schema.Message, stamp float64) error {
	if t.file != nil {
		if err := t.file.Publish(topic, msg, stamp); err != nil {
			return err
		}
	}
	return t.network.Publish(topic, msg, stamp)
}

// Log writes one log line to the console first, synchronously and
// unconditionally, then forwards it to the network and file sinks.
func (t *Telemetry) Log(msg string, stamp float64, level core.Level) error {
	t.console.Log(msg, stamp, level)

	if err := t.network.Log(msg, stamp, level); err != nil {
		return err
	}
	if t.file != nil {
		return t.file.Log(msg, stamp, level)
	}
	return nil
}

func (t *Telemetry) Debug(msg string, stamp float64) error {
	return t.Log(msg, stamp, core.LevelDebug)
}

func (t *Telemetry) Info(msg string, stamp float64) error {
	return t.Log(msg, stamp, core.LevelInfo)
}

func (t *Telemetry) Warning(msg string, stamp float64) error {
	return t.Log(msg, stamp, core.LevelWarning)
}

func (t *Telemetry) Error(msg string, stamp float64) error {
	return t.Log(msg, stamp, core.LevelError)
}

func (t *Telemetry) Fatal(msg string, stamp float64) error {
	return t.Log(msg, stamp, core.LevelFatal)
}

// ViewerAddr returns the listen address of the network sink's viewer
// server, empty until the worker has bound its socket.
func (t *Telemetry) ViewerAddr() string {
	return t.network.Addr()
}

// Close tears the sink set down. Every sink is closed even when an
// earlier one fails; the first error encountered is returned.
func (t *Telemetry) Close() error {
	var first error

	if err := t.network.Close(); err != nil {
		first = err
	}
	if t.file != nil {
		if err := t.file.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := t.console.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// Stats aggregates per-sink statistics.
func (t *Telemetry) Stats() []sink.Stats {
	stats := []sink.Stats{
		t.console.Stats(),
		t.network.Stats(),
	}
	if t.file != nil {
		stats = append(stats, t.file.Stats())
	}
	return stats
}
