package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gigurra/aegis/cmd/common/clock"
	"github.com/gigurra/aegis/cmd/common/sound"
	"github.com/gopxl/beep/v2"
)

// PollInterval is how often players report the playback position.
const PollInterval = 250 * time.Millisecond

// Source produces the audio played for a video id.
type Source func(id string) (beep.StreamSeeker, beep.Format, error)

// ChimeSource plays the placeholder bell for every id.
func ChimeSource(string) (beep.StreamSeeker, beep.Format, error) {
	s, f := newChime()
	return s, f, nil
}

// FallbackPlayer plays through the local speaker. It cannot fetch the audio
// of a video, so it plays whatever its Source returns.
type FallbackPlayer struct {
	spk    sound.Speaker
	clk    clock.Clock
	source Source
	events Events

	mu      sync.Mutex
	gen     uint64
	id      string
	voice   *sound.Voice
	playing bool
	volume  float64
	poll    clock.Timer
}

// NewFallback creates a player on spk. A nil source plays the chime.
func NewFallback(spk sound.Speaker, clk clock.Clock, source Source, events Events) *FallbackPlayer {
	if source == nil {
		source = ChimeSource
	}
	return &FallbackPlayer{
		spk:    spk,
		clk:    clk,
		source: source,
		events: events,
		volume: 1,
	}
}

// Load replaces the current stream. With autoplay the stream starts at once,
// otherwise it waits paused for Play.
func (f *FallbackPlayer) Load(ctx context.Context, id string, autoplay bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.teardownLocked()
	f.gen++
	gen := f.gen
	f.id = id
	f.mu.Unlock()

	voice, err := f.newVoice(gen, id)
	if err != nil {
		f.events.emitState(StateUnstarted)
		return err
	}

	f.mu.Lock()
	if f.gen != gen {
		// Destroyed or reloaded while opening.
		f.mu.Unlock()
		voice.Close()
		return nil
	}
	f.voice = voice
	f.mu.Unlock()

	slog.Debug("fallback audio loaded", "id", id, "autoplay", autoplay)
	if autoplay {
		f.Play()
	}
	f.schedulePoll(gen)
	return nil
}

func (f *FallbackPlayer) newVoice(gen uint64, id string) (*sound.Voice, error) {
	src, format, err := f.source(id)
	if err != nil {
		return nil, fmt.Errorf("opening fallback audio for %s: %w", id, err)
	}

	f.mu.Lock()
	volume := f.volume
	f.mu.Unlock()

	voice := sound.NewVoice(f.spk, src, format)
	voice.SetVolume(volume)
	voice.OnEnded(func() { f.ended(gen) })
	if err := voice.Start(true); err != nil {
		voice.Close()
		return nil, fmt.Errorf("starting fallback audio: %w", err)
	}
	return voice, nil
}

func (f *FallbackPlayer) ended(gen uint64) {
	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return
	}
	f.playing = false
	f.mu.Unlock()

	f.events.emitState(StateEnded)
}

func (f *FallbackPlayer) schedulePoll(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen || f.voice == nil {
		return
	}
	f.poll = f.clk.AfterFunc(PollInterval, func() { f.tick(gen) })
}

func (f *FallbackPlayer) tick(gen uint64) {
	f.mu.Lock()
	if f.gen != gen || f.voice == nil {
		f.mu.Unlock()
		return
	}
	voice := f.voice
	f.mu.Unlock()

	f.events.emitTime(voice.Position())
	if !voice.Ended() {
		f.schedulePoll(gen)
	}
}

// Play resumes the stream. A stream that already ended starts over.
func (f *FallbackPlayer) Play() {
	f.mu.Lock()
	voice, gen, id := f.voice, f.gen, f.id
	f.mu.Unlock()
	if voice == nil {
		return
	}

	restarted := false
	if voice.Ended() {
		fresh, err := f.newVoice(gen, id)
		if err != nil {
			slog.Error("failed to restart fallback audio", "id", id, "error", err)
			return
		}
		f.mu.Lock()
		if f.gen != gen {
			f.mu.Unlock()
			fresh.Close()
			return
		}
		f.voice = fresh
		f.mu.Unlock()
		voice.Close()
		voice = fresh
		restarted = true
	}

	wasPaused := voice.Paused()
	voice.Resume()

	f.mu.Lock()
	f.playing = true
	f.mu.Unlock()

	if restarted {
		f.schedulePoll(gen)
	}
	if wasPaused {
		f.events.emitState(StatePlaying)
	}
}

func (f *FallbackPlayer) Pause() {
	f.mu.Lock()
	voice := f.voice
	f.mu.Unlock()
	if voice == nil {
		return
	}

	wasPaused := voice.Paused()
	voice.Pause()

	f.mu.Lock()
	f.playing = false
	f.mu.Unlock()

	if !wasPaused {
		f.events.emitState(StatePaused)
	}
}

// Stop pauses and rewinds.
func (f *FallbackPlayer) Stop() {
	f.Pause()

	f.mu.Lock()
	voice := f.voice
	f.mu.Unlock()
	if voice != nil {
		if err := voice.Seek(0); err != nil {
			slog.Warn("failed to rewind fallback audio", "error", err)
		}
	}
}

func (f *FallbackPlayer) SetVolume(level float64) {
	level = sound.Clamp(level)

	f.mu.Lock()
	f.volume = level
	voice := f.voice
	f.mu.Unlock()

	if voice != nil {
		voice.SetVolume(level)
	}
}

func (f *FallbackPlayer) CurrentTime() time.Duration {
	f.mu.Lock()
	voice := f.voice
	f.mu.Unlock()
	if voice == nil {
		return 0
	}
	return voice.Position()
}

func (f *FallbackPlayer) Duration() time.Duration {
	f.mu.Lock()
	voice := f.voice
	f.mu.Unlock()
	if voice == nil {
		return 0
	}
	return voice.Duration()
}

func (f *FallbackPlayer) State() State {
	f.mu.Lock()
	voice, playing := f.voice, f.playing
	f.mu.Unlock()

	switch {
	case voice == nil:
		return StateUnstarted
	case voice.Ended():
		return StateEnded
	case playing && !voice.Paused():
		return StatePlaying
	}
	return StatePaused
}

func (f *FallbackPlayer) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.teardownLocked()
}

// teardownLocked stops polling and silences the current voice.
func (f *FallbackPlayer) teardownLocked() {
	if f.poll != nil {
		f.poll.Stop()
		f.poll = nil
	}
	if f.voice != nil {
		if err := f.voice.Close(); err != nil {
			slog.Warn("failed to close fallback audio", "error", err)
		}
		f.voice = nil
	}
	f.playing = false
}
