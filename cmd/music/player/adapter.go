package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gigurra/aegis/cmd/common/clock"
	"github.com/gigurra/aegis/cmd/common/sound"
)

// Adapter plays through the primary engine when it can and through a
// fallback otherwise. Only one backend is alive at a time and every call
// goes to whichever one is current.
type Adapter struct {
	loader      *Loader
	socket      string
	clk         clock.Clock
	newFallback func(Events) Backend
	events      Events

	mu          sync.Mutex
	gen         uint64
	primary     Backend
	fallback    Backend
	useFallback bool
	ticker      clock.Timer
	id          string
	autoplay    bool
	volume      float64
}

type AdapterOptions struct {
	// Loader probes the primary engine. Nil means fallback only.
	Loader *Loader
	// Socket is the exclusive IPC path handed to the primary backend.
	Socket string
	Clock  clock.Clock
	// Fallback builds the local player.
	Fallback func(Events) Backend
	Events   Events
}

func NewAdapter(opts AdapterOptions) *Adapter {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Adapter{
		loader:      opts.Loader,
		socket:      opts.Socket,
		clk:         clk,
		newFallback: opts.Fallback,
		events:      opts.Events,
		volume:      1,
	}
}

// UsingFallback reports whether calls go to the fallback backend.
func (a *Adapter) UsingFallback() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.useFallback
}

// Load tears down whatever was playing and starts id. It only fails when
// the fallback fails too.
func (a *Adapter) Load(ctx context.Context, id string, autoplay bool) error {
	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.id, a.autoplay = id, autoplay
	a.useFallback = false
	old := a.detachLocked()
	a.mu.Unlock()

	a.teardown(old)

	if err := a.loadPrimary(ctx, gen, id, autoplay); err != nil {
		slog.Warn("primary player unavailable, using fallback", "id", id, "error", err)
		return a.loadFallback(ctx, gen, id, autoplay)
	}
	return nil
}

func (a *Adapter) loadPrimary(ctx context.Context, gen uint64, id string, autoplay bool) error {
	if a.loader == nil {
		return ErrEngineUnavailable
	}
	if err := a.loader.EnsureLoaded(ctx); err != nil {
		return err
	}

	backend, err := a.loader.Engine().NewBackend(a.socket, a.forward(gen, false))
	if err != nil {
		return fmt.Errorf("creating %s backend: %w", a.loader.Engine().Name(), err)
	}

	a.mu.Lock()
	if a.gen != gen {
		a.mu.Unlock()
		safely("destroy superseded primary", backend.Destroy)
		return nil
	}
	a.primary = backend
	volume := a.volume
	a.mu.Unlock()

	backend.SetVolume(volume)
	if err := backend.Load(ctx, id, autoplay); err != nil {
		a.mu.Lock()
		if a.primary == backend {
			a.primary = nil
		}
		a.mu.Unlock()
		safely("destroy failed primary", backend.Destroy)
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen == gen && a.primary == backend {
		a.scheduleTickLocked(gen)
	}
	return nil
}

func (a *Adapter) loadFallback(ctx context.Context, gen uint64, id string, autoplay bool) error {
	if a.newFallback == nil {
		return errors.New("no fallback player configured")
	}

	a.mu.Lock()
	if a.gen != gen {
		a.mu.Unlock()
		return nil
	}
	primary := a.primary
	a.primary = nil
	if a.ticker != nil {
		a.ticker.Stop()
		a.ticker = nil
	}
	fb := a.newFallback(a.forward(gen, true))
	a.fallback = fb
	a.useFallback = true
	volume := a.volume
	a.mu.Unlock()

	if primary != nil {
		safely("destroy primary", primary.Destroy)
	}

	fb.SetVolume(volume)
	if err := fb.Load(ctx, id, autoplay); err != nil {
		a.mu.Lock()
		if a.fallback == fb {
			a.fallback = nil
		}
		a.mu.Unlock()
		safely("destroy fallback", fb.Destroy)
		return fmt.Errorf("fallback player failed: %w", err)
	}
	slog.Debug("fallback player loaded", "id", id)
	return nil
}

// forward wraps the caller's events so that anything from a replaced or
// inactive backend is dropped.
func (a *Adapter) forward(gen uint64, fallback bool) Events {
	current := func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.gen == gen && a.useFallback == fallback
	}
	return Events{
		OnState: func(s State) {
			if current() {
				a.events.emitState(s)
			}
		},
		OnTime: func(d time.Duration) {
			if current() {
				a.events.emitTime(d)
			}
		},
		OnError: func(code ErrorCode) {
			if !current() {
				return
			}
			if fallback || !code.Fallback() {
				slog.Error("player error", "code", int(code), "message", code.String())
				a.events.emitError(code)
				return
			}
			slog.Warn("switching to fallback player", "code", int(code), "message", code.String())
			go a.switchToFallback(gen)
		},
	}
}

func (a *Adapter) switchToFallback(gen uint64) {
	a.mu.Lock()
	if a.gen != gen || a.useFallback {
		a.mu.Unlock()
		return
	}
	id, autoplay := a.id, a.autoplay
	a.mu.Unlock()

	if err := a.loadFallback(context.Background(), gen, id, autoplay); err != nil {
		slog.Error("fallback after player error failed", "id", id, "error", err)
		a.events.emitState(StateEnded)
	}
}

func (a *Adapter) scheduleTickLocked(gen uint64) {
	a.ticker = a.clk.AfterFunc(PollInterval, func() { a.tick(gen) })
}

func (a *Adapter) tick(gen uint64) {
	a.mu.Lock()
	if a.gen != gen || a.useFallback || a.primary == nil {
		a.mu.Unlock()
		return
	}
	primary := a.primary
	a.scheduleTickLocked(gen)
	a.mu.Unlock()

	a.events.emitTime(primary.CurrentTime())
}

func (a *Adapter) current() Backend {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.useFallback {
		return a.fallback
	}
	return a.primary
}

func (a *Adapter) Play() {
	if b := a.current(); b != nil {
		safely("play", b.Play)
	}
}

func (a *Adapter) Pause() {
	if b := a.current(); b != nil {
		safely("pause", b.Pause)
	}
}

func (a *Adapter) Stop() {
	if b := a.current(); b != nil {
		safely("stop", b.Stop)
	}
}

func (a *Adapter) SetVolume(level float64) {
	level = sound.Clamp(level)
	a.mu.Lock()
	a.volume = level
	a.mu.Unlock()
	if b := a.current(); b != nil {
		safely("set volume", func() { b.SetVolume(level) })
	}
}

func (a *Adapter) CurrentTime() time.Duration {
	if b := a.current(); b != nil {
		return b.CurrentTime()
	}
	return 0
}

func (a *Adapter) Duration() time.Duration {
	if b := a.current(); b != nil {
		return b.Duration()
	}
	return 0
}

func (a *Adapter) State() State {
	if b := a.current(); b != nil {
		return b.State()
	}
	return StateUnstarted
}

// Destroy stops everything. Safe to call more than once.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	a.gen++
	a.useFallback = false
	old := a.detachLocked()
	a.mu.Unlock()

	a.teardown(old)
}

type detached struct {
	ticker            clock.Timer
	primary, fallback Backend
}

func (a *Adapter) detachLocked() detached {
	d := detached{ticker: a.ticker, primary: a.primary, fallback: a.fallback}
	a.ticker, a.primary, a.fallback = nil, nil, nil
	return d
}

// teardown runs every step even when an earlier one panics.
func (a *Adapter) teardown(d detached) {
	if d.ticker != nil {
		safely("stop time ticker", func() { d.ticker.Stop() })
	}
	if d.primary != nil {
		safely("destroy primary", d.primary.Destroy)
	}
	if d.fallback != nil {
		safely("destroy fallback", d.fallback.Destroy)
	}
	if a.socket != "" {
		safely("remove socket", func() {
			if err := os.Remove(a.socket); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("failed to remove player socket", "socket", a.socket, "error", err)
			}
		})
	}
}

func safely(step string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("player step panicked", "step", step, "panic", r)
		}
	}()
	f()
}
