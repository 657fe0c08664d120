package player

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recorder collects events from a backend.
type recorder struct {
	mu     sync.Mutex
	states []State
	times  []time.Duration
	errors []ErrorCode
	stateC chan State
}

func newRecorder() *recorder {
	return &recorder{stateC: make(chan State, 64)}
}

func (r *recorder) events() Events {
	return Events{
		OnState: func(s State) {
			r.mu.Lock()
			r.states = append(r.states, s)
			r.mu.Unlock()
			r.stateC <- s
		},
		OnTime: func(d time.Duration) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.times = append(r.times, d)
		},
		OnError: func(c ErrorCode) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, c)
		},
	}
}

func (r *recorder) snapshot() ([]State, []time.Duration, []ErrorCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...), append([]time.Duration(nil), r.times...), append([]ErrorCode(nil), r.errors...)
}

func (r *recorder) waitFor(t *testing.T, want State) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.stateC:
			if s == want {
				return
			}
		case <-timeout:
			states, _, _ := r.snapshot()
			t.Fatalf("timed out waiting for state %v, got %v", want, states)
		}
	}
}

// fakeBackend records calls made through the Backend interface.
type fakeBackend struct {
	name    string
	events  Events
	loadErr error

	mu        sync.Mutex
	loads     []string
	calls     []string
	volume    float64
	state     State
	destroyed int
}

func (b *fakeBackend) Load(ctx context.Context, id string, autoplay bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads = append(b.loads, id)
	if b.loadErr != nil {
		return b.loadErr
	}
	b.state = StateCued
	if autoplay {
		b.state = StatePlaying
	}
	return nil
}

func (b *fakeBackend) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *fakeBackend) Play()  { b.record("play") }
func (b *fakeBackend) Pause() { b.record("pause") }
func (b *fakeBackend) Stop()  { b.record("stop") }

func (b *fakeBackend) SetVolume(level float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = level
}

func (b *fakeBackend) CurrentTime() time.Duration { return 42 * time.Second }
func (b *fakeBackend) Duration() time.Duration    { return 3 * time.Minute }

func (b *fakeBackend) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *fakeBackend) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed++
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) Destroyed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// fakeEngine hands out fakeBackends and lets tests control the probe.
type fakeEngine struct {
	probe   func(ctx context.Context) error
	loadErr error

	mu       sync.Mutex
	probes   int
	backends []*fakeBackend
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Probe(ctx context.Context) error {
	e.mu.Lock()
	e.probes++
	probe := e.probe
	e.mu.Unlock()
	if probe != nil {
		return probe(ctx)
	}
	return nil
}

func (e *fakeEngine) NewBackend(socket string, events Events) (Backend, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := &fakeBackend{name: "primary", events: events, loadErr: e.loadErr, state: StateUnstarted}
	e.backends = append(e.backends, b)
	return b, nil
}

func (e *fakeEngine) Probes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.probes
}

func (e *fakeEngine) Backends() []*fakeBackend {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*fakeBackend(nil), e.backends...)
}
