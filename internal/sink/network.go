package sink

import (
	"sync"
	"sync/atomic"
	"time"

	"mcaplog/internal/core"
	"mcaplog/internal/schema"
	"mcaplog/internal/viewer"

	"github.com/lixenwraith/log"
)

// NetworkOptions configures the network sink and its viewer server.
type NetworkOptions struct {
	Host          string
	Port          int
	Name          string
	QueueCapacity int
	PollInterval  time.Duration
}

func (o *NetworkOptions) withDefaults() NetworkOptions {
	out := *o
	if out.Host == "" {
		out.Host = core.DefaultViewerHost
	}
	if out.Name == "" {
		out.Name = core.DefaultViewerName
	}
	if out.QueueCapacity <= 0 {
		out.QueueCapacity = core.DefaultQueueCapacity
	}
	if out.PollInterval <= 0 {
		out.PollInterval = core.DefaultPollInterval
	}
	return out
}

// item crosses from producer goroutines to the worker. Consumed exactly
// once, then discarded.
type item struct {
	topic string
	stamp float64
	msg   schema.Message
}

// NetworkSink mirrors published records to connected viewers. It owns
// exactly one worker goroutine, which hosts the viewer server and is
// the only goroutine touching the server or the registry. Producers
// talk to the worker through the queue alone.
type NetworkSink struct {
	opts  NetworkOptions
	queue chan item
	stop  chan struct{} // closed by Close to request worker exit
	done  chan struct{} // closed by the worker on exit

	closeOnce sync.Once

	// Failure captured by the worker, surfaced to the next producer
	// call exactly once.
	errMu       sync.Mutex
	workerErr   error
	errReported bool

	// Listen address once the server is up, for tests and status.
	addr atomic.Value // string

	logger    *log.Logger
	startTime time.Time

	totalRecords atomic.Uint64
	lastRecord   atomic.Value // time.Time
}

func NewNetworkSink(opts NetworkOptions, logger *log.Logger) *NetworkSink {
	o := opts.withDefaults()
	n := &NetworkSink{
		opts:      o,
		queue:     make(chan item, o.QueueCapacity),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger,
		startTime: time.Now(),
	}
	n.lastRecord.Store(time.Time{})
	n.addr.Store("")

	go n.run()
	return n
}

func (n *NetworkSink) run() {
	defer close(n.done)

	if err := n.serve(); err != nil {
		n.errMu.Lock()
		n.workerErr = err
		n.errMu.Unlock()

		n.logger.Error("msg", "Network worker failed",
			"component", "network_sink",
			"error", err)
	}
}

// serve is the worker loop: start the viewer server, pre-register the
// log channel, then drain the queue until asked to stop. Any error
// ends the worker; producers observe it on their next call.
func (n *NetworkSink) serve() error {
	server := viewer.NewServer(n.opts.Host, n.opts.Port, n.opts.Name, n.logger)
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()
	n.addr.Store(server.Addr())

	registry := schema.NewRegistry()
	if _, err := registry.Resolve(server, core.LogTopic, schema.LogRecord{}); err != nil {
		return err
	}

	for {
		select {
		case <-n.stop:
			return nil

		case it := <-n.queue:
			if err := n.forward(server, registry, it); err != nil {
				return err
			}

		case <-time.After(n.opts.PollInterval):
			// idle; loop to re-check the stop flag at a bounded cadence
		}
	}
}

func (n *NetworkSink) forward(server *viewer.Server, registry *schema.Registry, it item) error {
	registration, err := registry.Resolve(server, it.topic, it.msg)
	if err != nil {
		return err
	}

	data, err := it.msg.MarshalRecord()
	if err != nil {
		return &core.SerializationError{Topic: it.topic, Err: err}
	}

	return server.SendMessage(registration.ChannelID, uint64(core.ToNanos(it.stamp)), data)
}

// Publish hands the record to the worker and returns immediately; the
// actual send happens asynchronously. When the worker is dead, the
// captured failure is returned once, then ErrNotRunning.
func (n *NetworkSink) Publish(topic string, msg schema.Message, stamp float64) error {
	select {
	case <-n.done:
		return n.deadError()
	default:
	}

	select {
	case n.queue <- item{topic: topic, stamp: stamp, msg: msg}:
		n.totalRecords.Add(1)
		n.lastRecord.Store(time.Now())
		return nil
	case <-n.done:
		return n.deadError()
	}
}

func (n *NetworkSink) Log(msg string, stamp float64, level core.Level) error {
	return n.Publish(core.LogTopic, schema.NewLogRecord(msg, stamp, level), stamp)
}

func (n *NetworkSink) deadError() error {
	n.errMu.Lock()
	defer n.errMu.Unlock()

	if n.workerErr != nil && !n.errReported {
		n.errReported = true
		return &core.WorkerError{Err: n.workerErr}
	}
	return core.ErrNotRunning
}

// Close asks the worker to stop and joins it. The worker observes the
// stop flag within one poll interval; joining an already-dead worker
// returns immediately.
func (n *NetworkSink) Close() error {
	n.closeOnce.Do(func() {
		close(n.stop)
	})
	<-n.done

	n.logger.Info("msg", "Network sink stopped",
		"component", "network_sink",
		"records", n.totalRecords.Load())
	return nil
}

// Addr returns the viewer server's listen address, empty until the
// worker has bound its socket.
func (n *NetworkSink) Addr() string {
	addr, _ := n.addr.Load().(string)
	return addr
}

func (n *NetworkSink) Stats() Stats {
	lastRecord, _ := n.lastRecord.Load().(time.Time)
	return Stats{
		Type:       "network",
		Records:    n.totalRecords.Load(),
		LastRecord: lastRecord,
		StartTime:  n.startTime,
		Details: map[string]any{
			"addr":     n.Addr(),
			"queued":   len(n.queue),
			"capacity": cap(n.queue),
		},
	}
}
