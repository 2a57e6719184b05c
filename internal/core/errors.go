package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSinkClosed is returned by publish/log calls on a finalized sink.
	ErrSinkClosed = errors.New("sink is closed")

	// ErrNotRunning is returned by the network sink when its worker has
	// exited and no worker failure is pending.
	ErrNotRunning = errors.New("network worker is not running")
)

// ConflictError reports a topic re-registered with a different record type.
type ConflictError struct {
	Topic      string
	Registered string
	Requested  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("topic %q already registered with type %q, got %q",
		e.Topic, e.Registered, e.Requested)
}

// SerializationError reports a payload that could not be encoded.
type SerializationError struct {
	Topic string
	Err   error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize payload for topic %q: %v", e.Topic, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// WorkerError carries a failure captured inside the network worker.
// It is surfaced on the first producer call after the worker dies.
type WorkerError struct {
	Err error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("network worker failed: %v", e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

// InvalidLevelError reports a level value outside the defined range.
type InvalidLevelError struct {
	Level int
}

func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("invalid log level %d", e.Level)
}
