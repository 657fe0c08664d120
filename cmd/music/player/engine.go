package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gigurra/aegis/cmd/common/clock"
	"golang.org/x/sync/singleflight"
)

// DefaultEngineTimeout bounds how long a load waits for the engine.
const DefaultEngineTimeout = 5 * time.Second

var (
	ErrEngineTimeout     = errors.New("media engine load timed out")
	ErrEngineUnavailable = errors.New("media engine unavailable")
)

// Engine is an external media engine that can be probed once and then
// spawns one backend per video.
type Engine interface {
	Name() string
	// Probe checks that the engine can run at all.
	Probe(ctx context.Context) error
	// NewBackend creates a backend bound to the exclusive socket path.
	NewBackend(socket string, events Events) (Backend, error)
}

// Loader makes sure an engine is probed once per process. Concurrent
// callers share the attempt in flight; a success is remembered, a failure
// is retried by the next caller.
type Loader struct {
	engine  Engine
	timeout time.Duration
	clk     clock.Clock

	group singleflight.Group

	mu    sync.Mutex
	ready bool
}

// NewLoader returns a loader with a hard timeout per attempt.
func NewLoader(engine Engine, timeout time.Duration, clk clock.Clock) *Loader {
	if timeout <= 0 {
		timeout = DefaultEngineTimeout
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Loader{engine: engine, timeout: timeout, clk: clk}
}

func (l *Loader) Engine() Engine {
	return l.engine
}

// Ready reports whether a probe has succeeded.
func (l *Loader) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// EnsureLoaded returns nil once the engine is usable. Cancelling ctx only
// abandons the wait; the shared attempt keeps running for other callers.
func (l *Loader) EnsureLoaded(ctx context.Context) error {
	if l.Ready() {
		return nil
	}

	ch := l.group.DoChan(l.engine.Name(), func() (any, error) {
		return nil, l.probe()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loader) probe() error {
	if l.Ready() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := make(chan struct{})
	timer := l.clk.AfterFunc(l.timeout, func() { close(expired) })
	defer timer.Stop()

	done := make(chan error, 1)
	go func() { done <- l.engine.Probe(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			slog.Warn("media engine probe failed", "engine", l.engine.Name(), "error", err)
			return fmt.Errorf("%w: %s: %w", ErrEngineUnavailable, l.engine.Name(), err)
		}
	case <-expired:
		slog.Warn("media engine probe timed out", "engine", l.engine.Name(), "timeout", l.timeout)
		return fmt.Errorf("%w after %s", ErrEngineTimeout, l.timeout)
	}

	l.mu.Lock()
	l.ready = true
	l.mu.Unlock()
	slog.Debug("media engine ready", "engine", l.engine.Name())
	return nil
}

var (
	sharedMu      sync.Mutex
	sharedLoaders = map[string]*Loader{}
)

// SharedLoader returns the process-wide loader for an engine name, creating
// it on first use. Later calls ignore timeout and clk.
func SharedLoader(engine Engine, timeout time.Duration, clk clock.Clock) *Loader {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if l, ok := sharedLoaders[engine.Name()]; ok {
		return l
	}
	l := NewLoader(engine, timeout, clk)
	sharedLoaders[engine.Name()] = l
	return l
}
