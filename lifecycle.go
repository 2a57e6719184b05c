package mcaplog

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mcaplog/internal/core"
	"mcaplog/internal/service"
)

// Process-wide logger state: at most one live instance at a time.
var (
	mu            sync.Mutex
	active        *service.Telemetry
	hookInstalled bool
)

// Setup replaces the process-wide logger. An existing instance is
// closed first; its close error aborts the setup. Pass an empty path to
// log to console and viewers only.
func Setup(path string, level Level) error {
	mu.Lock()
	defer mu.Unlock()
	return setupLocked(path, level)
}

// Close tears down the process-wide logger. No-op when none exists.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}

func setupLocked(path string, level Level) error {
	installExitHook()

	if err := closeLocked(); err != nil {
		return err
	}

	t, err := service.New(service.Options{
		Path:       path,
		Level:      level,
		Compress:   true,
		ViewerHost: core.DefaultViewerHost,
		ViewerPort: core.DefaultViewerPort,
		ViewerName: core.DefaultViewerName,
	})
	if err != nil {
		return err
	}
	active = t
	return nil
}

func closeLocked() error {
	if active == nil {
		return nil
	}
	t := active
	active = nil
	return t.Close()
}

// instance returns the process-wide logger, creating one with default
// settings (console and viewers only, info level) on first use.
func instance() (*service.Telemetry, error) {
	mu.Lock()
	defer mu.Unlock()

	if active == nil {
		if err := setupLocked("", core.LevelInfo); err != nil {
			return nil, err
		}
	}
	return active, nil
}

// installExitHook arranges for the logger to be torn down on SIGINT or
// SIGTERM, so the container is finalized and the worker joined even if
// the caller forgot to close. Teardown errors are swallowed here; the
// process is going down anyway. The signal is re-raised afterwards so
// the process still terminates with the conventional status. Callers
// that exit normally remain responsible for calling Close themselves.
func installExitHook() {
	if hookInstalled {
		return
	}
	hookInstalled = true

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-ch

		mu.Lock()
		closeLocked()
		mu.Unlock()

		signal.Stop(ch)
		signal.Reset(sig)
		if s, ok := sig.(syscall.Signal); ok {
			syscall.Kill(syscall.Getpid(), s)
		}
	}()
}
