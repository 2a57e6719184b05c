package sink

import (
	"testing"
	"time"

	"mcaplog/internal/core"
	"mcaplog/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNetworkSink(t *testing.T) *NetworkSink {
	t.Helper()

	n := NewNetworkSink(NetworkOptions{
		Host:         "127.0.0.1",
		Port:         0, // ephemeral, keeps parallel test runs apart
		PollInterval: 20 * time.Millisecond,
	}, newTestLogger())

	require.Eventually(t, func() bool { return n.Addr() != "" },
		2*time.Second, 10*time.Millisecond, "worker did not bind the viewer socket")
	return n
}

func TestNetworkSinkPublish(t *testing.T) {
	n := newTestNetworkSink(t)
	defer n.Close()

	require.NoError(t, n.Publish("/pose", schema.Wrap(pose{X: 1}), 1.0))
	require.NoError(t, n.Log("hello", 2.0, core.LevelInfo))

	stats := n.Stats()
	assert.Equal(t, "network", stats.Type)
	assert.Equal(t, uint64(2), stats.Records)
}

func TestNetworkSinkClose(t *testing.T) {
	n := newTestNetworkSink(t)

	require.NoError(t, n.Close())

	err := n.Publish("/pose", schema.Wrap(pose{}), 1.0)
	assert.ErrorIs(t, err, core.ErrNotRunning)

	// A second close on a finished worker returns immediately.
	done := make(chan error, 1)
	go func() { done <- n.Close() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("repeated close hung")
	}
}

func TestNetworkSinkWorkerFailure(t *testing.T) {
	n := newTestNetworkSink(t)
	defer n.Close()

	// A payload that cannot be serialized kills the worker loop.
	require.NoError(t, n.Publish("/bad", schema.Wrap(struct{ Ch chan int }{make(chan int)}), 1.0))

	var captured error
	require.Eventually(t, func() bool {
		if err := n.Publish("/pose", schema.Wrap(pose{}), 2.0); err != nil {
			captured = err
			return true
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "worker death never surfaced")

	// The captured failure is surfaced exactly once with its root
	// cause, every call after that reports not-running.
	var workerErr *core.WorkerError
	require.ErrorAs(t, captured, &workerErr)
	var serializationErr *core.SerializationError
	assert.ErrorAs(t, workerErr.Err, &serializationErr)

	err := n.Publish("/pose", schema.Wrap(pose{}), 3.0)
	assert.ErrorIs(t, err, core.ErrNotRunning)
}

func TestNetworkSinkLogTopicPreregistered(t *testing.T) {
	n := newTestNetworkSink(t)
	defer n.Close()

	// Logging on a fresh sink must not conflict with the eagerly
	// registered log channel.
	require.NoError(t, n.Log("first", 1.0, core.LevelWarning))
	require.NoError(t, n.Log("second", 2.0, core.LevelError))
}
