// Package theme plays the short theme clips of team members: fade in, a
// continue-or-stop prompt once the clip window has passed, fade out when
// stopped or replaced. At most one clip is audible at a time.
package theme

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gigurra/aegis/cmd/common/clock"
	"github.com/gigurra/aegis/cmd/common/sound"
	"github.com/gigurra/aegis/cmd/team/roster"
)

const (
	DefaultVolume   = 0.3
	FadeInDuration  = time.Second
	FadeOutDuration = 500 * time.Millisecond
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhasePlaying
	PhaseAwaitingContinue
	PhaseContinuing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhasePlaying:
		return "playing"
	case PhaseAwaitingContinue:
		return "awaiting-continue"
	case PhaseContinuing:
		return "continuing"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Info names the clip that is playing.
type Info struct {
	MemberName string
	ThemeName  string
}

// State is a snapshot of the manager.
type State struct {
	Phase              Phase
	IsPlaying          bool
	IsMuted            bool
	ShowContinuePrompt bool
	Active             *Info
}

// Request describes one clip.
type Request struct {
	Src        string
	Start      time.Duration
	Duration   time.Duration
	MemberName string
	ThemeName  string
	Volume     float64
}

type Manager struct {
	opener Opener
	clk    clock.Clock

	mu     sync.Mutex
	gen    uint64
	state  State
	handle Handle

	// retiring is a handle being faded out before it is closed.
	retiring Handle
	target   float64

	fade     clock.Timer
	fadeID   uint64
	fadingIn bool
	fadeDone func()
	prompt   clock.Timer
	subs     map[int]func(State)
	nextSub  int
}

func NewManager(opener Opener, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		opener: opener,
		clk:    clk,
		target: DefaultVolume,
		subs:   map[int]func(State){},
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	s := m.state
	if s.Active != nil {
		info := *s.Active
		s.Active = &info
	}
	return s
}

// Subscribe calls fn with every new state until the returned func is called.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// unlockAndPublish releases the lock and hands the new state to subscribers.
func (m *Manager) unlockAndPublish() {
	snap := m.snapshotLocked()
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// PlayTheme starts a clip. A clip that is already playing is faded out
// first. Failures are logged and leave the manager not playing.
func (m *Manager) PlayTheme(ctx context.Context, req Request) {
	if req.Volume <= 0 {
		req.Volume = DefaultVolume
	}

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.stopPromptLocked()
	m.state.ShowContinuePrompt = false
	m.state.Phase = PhaseLoading

	victim := m.handle
	m.handle = nil
	if victim == nil {
		victim = m.retiring
	} else if m.retiring != nil {
		m.closeLocked(m.retiring)
	}
	m.cancelFadeLocked()

	if victim == nil {
		m.unlockAndPublish()
		m.load(ctx, gen, req)
		return
	}

	m.retiring = victim
	m.fadeOutLocked(victim, func() {
		m.load(ctx, gen, req)
	})
	m.unlockAndPublish()
}

// PlayMember plays the roster theme of a member, or the default theme
// for members without one.
func (m *Manager) PlayMember(ctx context.Context, r *roster.Roster, memberID, musicDir string) error {
	member, err := r.Member(memberID)
	if err != nil {
		return err
	}
	t := r.ThemeFor(memberID)
	m.PlayTheme(ctx, Request{
		Src:        t.Path(musicDir),
		Start:      t.Start(),
		Duration:   t.Length(),
		MemberName: member.Name,
		ThemeName:  t.Name,
		Volume:     DefaultVolume,
	})
	return nil
}

func (m *Manager) load(ctx context.Context, gen uint64, req Request) {
	h, err := m.opener.Open(ctx, req.Src)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		if h != nil {
			h.Close()
		}
		return
	}
	if err == nil {
		err = m.startLocked(gen, h, req)
	}
	if err != nil {
		slog.Warn("theme playback failed", "src", req.Src, "member", req.MemberName, "error", err)
		if h != nil {
			h.Close()
		}
		m.state.IsPlaying = false
		m.state.Phase = PhaseIdle
		m.state.Active = nil
	}
	m.unlockAndPublish()
}

func (m *Manager) startLocked(gen uint64, h Handle, req Request) error {
	if err := h.Seek(req.Start); err != nil {
		return fmt.Errorf("seeking to %s: %w", req.Start, err)
	}
	h.SetVolume(0)
	if err := h.Play(); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}

	m.handle = h
	m.target = sound.Clamp(req.Volume)
	m.state.IsPlaying = true
	m.state.Phase = PhasePlaying
	m.state.Active = &Info{MemberName: req.MemberName, ThemeName: req.ThemeName}
	slog.Debug("theme playing", "member", req.MemberName, "theme", req.ThemeName, "start", req.Start)

	// The clip window starts once the fade-in is done.
	wait := req.Duration
	if !m.state.IsMuted {
		m.fadeInLocked(h, m.target)
		wait += FadeInDuration
	}
	m.prompt = m.clk.AfterFunc(wait, func() { m.showPrompt(gen) })
	return nil
}

func (m *Manager) showPrompt(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.handle == nil {
		m.mu.Unlock()
		return
	}
	m.prompt = nil
	m.state.ShowContinuePrompt = true
	m.state.Phase = PhaseAwaitingContinue
	m.unlockAndPublish()
}

// ContinuePlaying dismisses the prompt and lets the clip run to the end
// of the file.
func (m *Manager) ContinuePlaying() {
	m.mu.Lock()
	m.state.ShowContinuePrompt = false
	if h := m.handle; h != nil {
		gen := m.gen
		m.state.Phase = PhaseContinuing
		h.OnEnded(func() { m.ended(gen) })
	}
	m.unlockAndPublish()
}

func (m *Manager) ended(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.handle == nil {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.closeLocked(m.handle)
	m.handle = nil
	m.state.IsPlaying = false
	m.state.Active = nil
	m.state.Phase = PhaseIdle
	m.unlockAndPublish()
}

// StopAfterTheme dismisses the prompt and stops.
func (m *Manager) StopAfterTheme() {
	m.StopTheme()
}

// StopTheme clears the prompt, the pending prompt timer and the clip info
// at once, then fades the clip out.
func (m *Manager) StopTheme() {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.stopPromptLocked()
	m.state.ShowContinuePrompt = false
	m.state.Active = nil
	m.state.Phase = PhaseIdle

	victim := m.handle
	m.handle = nil
	if victim == nil {
		victim = m.retiring
	} else if m.retiring != nil {
		m.closeLocked(m.retiring)
	}
	m.cancelFadeLocked()

	if victim == nil {
		m.state.IsPlaying = false
		m.unlockAndPublish()
		return
	}

	m.retiring = victim
	m.fadeOutLocked(victim, func() {
		m.mu.Lock()
		if m.gen == gen {
			m.state.IsPlaying = false
		}
		m.unlockAndPublish()
	})
	m.unlockAndPublish()
}

// ToggleMute silences the clip without touching the target volume.
// Unmuting restores DefaultVolume.
func (m *Manager) ToggleMute() {
	m.mu.Lock()
	m.state.IsMuted = !m.state.IsMuted
	if m.fadingIn {
		m.cancelFadeLocked()
	}
	if h := m.handle; h != nil {
		if m.state.IsMuted {
			h.SetVolume(0)
		} else {
			h.SetVolume(DefaultVolume)
		}
	}
	m.unlockAndPublish()
}

// SetVolume changes the live volume. Ignored while muted.
func (m *Manager) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.IsMuted {
		return
	}
	level = sound.Clamp(level)
	m.target = level
	if m.fadingIn {
		m.cancelFadeLocked()
	}
	if m.handle != nil {
		m.handle.SetVolume(level)
	}
}

// Close stops everything at once, without fading.
func (m *Manager) Close() {
	m.mu.Lock()
	m.gen++
	m.stopPromptLocked()
	m.cancelFadeLocked()
	if m.retiring != nil {
		m.closeLocked(m.retiring)
	}
	if m.handle != nil {
		m.closeLocked(m.handle)
		m.handle = nil
	}
	m.state = State{IsMuted: m.state.IsMuted}
	m.unlockAndPublish()
}

func (m *Manager) stopPromptLocked() {
	if m.prompt != nil {
		m.prompt.Stop()
		m.prompt = nil
	}
}

// closeLocked pauses and releases h. A retiring handle is forgotten.
func (m *Manager) closeLocked(h Handle) {
	if h == m.retiring {
		m.retiring = nil
	}
	h.Pause()
	if err := h.Close(); err != nil {
		slog.Debug("failed to close theme audio", "error", err)
	}
}

// cancelFadeLocked stops the running fade and drops its continuation.
func (m *Manager) cancelFadeLocked() {
	m.fadeID++
	if m.fade != nil {
		m.fade.Stop()
		m.fade = nil
	}
	m.fadingIn = false
	m.fadeDone = nil
}

func (m *Manager) fadeInLocked(h Handle, target float64) {
	m.cancelFadeLocked()
	m.fadingIn = true
	m.runFadeLocked(h, Ramp(0, target, FadeSteps), FadeInDuration, false, nil)
}

// fadeOutLocked fades h to silence, then pauses and closes it and runs done
// without the lock held. It stops early once the volume reaches zero.
func (m *Manager) fadeOutLocked(h Handle, done func()) {
	m.cancelFadeLocked()
	finish := func() {
		m.mu.Lock()
		if m.retiring == h {
			m.closeLocked(h)
		}
		m.mu.Unlock()
		if done != nil {
			done()
		}
	}
	m.runFadeLocked(h, Ramp(h.Volume(), 0, FadeSteps), FadeOutDuration, true, finish)
}

func (m *Manager) runFadeLocked(h Handle, samples []float64, total time.Duration, falling bool, done func()) {
	id := m.fadeID
	interval := total / time.Duration(len(samples))
	m.fadeDone = done

	var step func(i int)
	step = func(i int) {
		m.mu.Lock()
		if m.fadeID != id {
			m.mu.Unlock()
			return
		}
		h.SetVolume(samples[i])
		if i == len(samples)-1 || (falling && samples[i] <= 0) {
			m.fade = nil
			m.fadingIn = false
			finish := m.fadeDone
			m.fadeDone = nil
			m.mu.Unlock()
			if finish != nil {
				finish()
			}
			return
		}
		m.fade = m.clk.AfterFunc(interval, func() { step(i + 1) })
		m.mu.Unlock()
	}
	m.fade = m.clk.AfterFunc(interval, func() { step(0) })
}
