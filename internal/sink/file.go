package sink

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"mcaplog/internal/core"
	"mcaplog/internal/schema"
	"mcaplog/internal/version"

	"github.com/foxglove/mcap/go/mcap"
	"github.com/lixenwraith/log"
)

// FileSink appends records to an MCAP container. Records land in the
// file in exact call order; the log channel is registered eagerly so
// the first log call pays no registration cost.
type FileSink struct {
	// The mcap writer is not safe for concurrent use; the mutex also
	// guards the registry and the id counters.
	mu            sync.Mutex
	file          *os.File
	writer        *mcap.Writer
	registry      *schema.Registry
	logChannel    schema.Registration
	nextSchemaID  uint16
	nextChannelID uint16
	sequence      uint32
	closed        bool

	logger    *log.Logger
	startTime time.Time

	totalRecords atomic.Uint64
	lastRecord   atomic.Value // time.Time
}

func NewFileSink(path string, compress bool, logger *log.Logger) (*FileSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create container %q: %w", path, err)
	}

	compression := mcap.CompressionNone
	if compress {
		compression = mcap.CompressionZSTD
	}

	writer, err := mcap.NewWriter(file, &mcap.WriterOptions{
		Chunked:     true,
		ChunkSize:   1024 * 1024,
		Compression: compression,
	})
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("create container writer: %w", err)
	}

	if err := writer.WriteHeader(&mcap.Header{
		Profile: "",
		Library: "mcaplog " + version.Short(),
	}); err != nil {
		file.Close()
		return nil, fmt.Errorf("write container header: %w", err)
	}

	fs := &FileSink{
		file:      file,
		writer:    writer,
		registry:  schema.NewRegistry(),
		logger:    logger,
		startTime: time.Now(),
	}
	fs.lastRecord.Store(time.Time{})

	// preventive log channel creation
	logChannel, err := fs.registry.Resolve(fs, core.LogTopic, schema.LogRecord{})
	if err != nil {
		file.Close()
		return nil, err
	}
	fs.logChannel = logChannel

	logger.Info("msg", "File sink started",
		"component", "file_sink",
		"path", path,
		"compressed", compress)

	return fs, nil
}

// AddChannel registers a schema and channel pair with the container.
// Called by the registry on first resolution of a topic; fs.mu is
// already held by the caller of Publish/Log.
func (fs *FileSink) AddChannel(topic, encoding, schemaName string, schemaBody []byte) (uint64, error) {
	fs.nextSchemaID++
	if err := fs.writer.WriteSchema(&mcap.Schema{
		ID:       fs.nextSchemaID,
		Name:     schemaName,
		Encoding: core.SchemaEncoding,
		Data:     schemaBody,
	}); err != nil {
		return 0, fmt.Errorf("register schema %q: %w", schemaName, err)
	}

	channelID := fs.nextChannelID
	fs.nextChannelID++
	if err := fs.writer.WriteChannel(&mcap.Channel{
		ID:              channelID,
		SchemaID:        fs.nextSchemaID,
		Topic:           topic,
		MessageEncoding: encoding,
		Metadata:        map[string]string{},
	}); err != nil {
		return 0, fmt.Errorf("register channel %q: %w", topic, err)
	}

	fs.logger.Debug("msg", "Channel registered",
		"component", "file_sink",
		"channel_id", channelID,
		"topic", topic,
		"type", schemaName)

	return uint64(channelID), nil
}

func (fs *FileSink) Publish(topic string, msg schema.Message, stamp float64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return core.ErrSinkClosed
	}

	registration, err := fs.registry.Resolve(fs, topic, msg)
	if err != nil {
		return err
	}

	data, err := msg.MarshalRecord()
	if err != nil {
		return &core.SerializationError{Topic: topic, Err: err}
	}

	return fs.append(registration, stamp, data)
}

func (fs *FileSink) Log(msg string, stamp float64, level core.Level) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return core.ErrSinkClosed
	}

	record := schema.NewLogRecord(msg, stamp, level)
	data, err := record.MarshalRecord()
	if err != nil {
		return &core.SerializationError{Topic: core.LogTopic, Err: err}
	}

	return fs.append(fs.logChannel, stamp, data)
}

func (fs *FileSink) append(registration schema.Registration, stamp float64, data []byte) error {
	ns := uint64(core.ToNanos(stamp))
	fs.sequence++
	if err := fs.writer.WriteMessage(&mcap.Message{
		ChannelID:   uint16(registration.ChannelID),
		Sequence:    fs.sequence,
		LogTime:     ns,
		PublishTime: ns,
		Data:        data,
	}); err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	fs.totalRecords.Add(1)
	fs.lastRecord.Store(time.Now())
	return nil
}

// Close finalizes the container, writing its trailing index, and
// releases the file. Publish and Log fail afterwards.
func (fs *FileSink) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil
	}
	fs.closed = true

	var first error
	if err := fs.writer.Close(); err != nil {
		first = fmt.Errorf("finalize container: %w", err)
	}
	if err := fs.file.Close(); err != nil && first == nil {
		first = fmt.Errorf("close container file: %w", err)
	}

	fs.logger.Info("msg", "File sink stopped",
		"component", "file_sink",
		"records", fs.totalRecords.Load())
	return first
}

func (fs *FileSink) Stats() Stats {
	lastRecord, _ := fs.lastRecord.Load().(time.Time)
	fs.mu.Lock()
	topics := fs.registry.Len()
	fs.mu.Unlock()

	return Stats{
		Type:       "file",
		Records:    fs.totalRecords.Load(),
		LastRecord: lastRecord,
		StartTime:  fs.startTime,
		Details: map[string]any{
			"topics": topics,
		},
	}
}
