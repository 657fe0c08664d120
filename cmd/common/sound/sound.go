// Package sound wraps the beep speaker behind a small interface and provides
// Voice, a pausable, seekable, volume-controlled stream. The theme clips and
// the fallback music player both play through it.
package sound

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// SampleRate is the rate the speaker is initialized with. Sources with other
// rates are resampled.
const SampleRate = beep.SampleRate(44100)

// Speaker is the audio output device.
type Speaker interface {
	// Init prepares the device. Safe to call more than once.
	Init(sr beep.SampleRate) error
	// Play starts mixing s into the output.
	Play(s beep.Streamer)
	// Lock and Unlock guard streamer state against the mixing goroutine.
	Lock()
	Unlock()
}

// Voice is one playing source on a Speaker.
type Voice struct {
	spk    Speaker
	src    beep.StreamSeeker
	format beep.Format

	// Guarded by the speaker lock.
	ctrl *beep.Ctrl
	gain *gain

	// mu guards the flags below. It is never held while taking the speaker
	// lock: the speaker goroutine takes mu from inside the lock in finish.
	mu      sync.Mutex
	started bool
	ended   bool
	closed  bool
	onEnded func()
}

// NewVoice wraps src. Nothing is audible until Start.
func NewVoice(spk Speaker, src beep.StreamSeeker, format beep.Format) *Voice {
	return &Voice{
		spk:    spk,
		src:    src,
		format: format,
		gain:   &gain{level: 1},
	}
}

// Start hands the voice to the speaker, optionally paused.
func (v *Voice) Start(paused bool) error {
	v.mu.Lock()
	if v.started || v.closed {
		v.mu.Unlock()
		return nil
	}
	v.started = true
	v.mu.Unlock()

	if err := v.spk.Init(SampleRate); err != nil {
		return err
	}

	var s beep.Streamer = v.src
	if v.format.SampleRate != 0 && v.format.SampleRate != SampleRate {
		s = beep.Resample(4, v.format.SampleRate, SampleRate, s)
	}

	v.spk.Lock()
	v.gain.Streamer = s
	v.ctrl = &beep.Ctrl{Streamer: v.gain, Paused: paused}
	v.spk.Unlock()

	v.spk.Play(beep.Seq(v.ctrl, beep.Callback(v.finish)))
	return nil
}

// finish runs on the speaker goroutine with the speaker lock held.
func (v *Voice) finish() {
	v.mu.Lock()
	if v.closed || v.ended {
		v.mu.Unlock()
		return
	}
	v.ended = true
	cb := v.onEnded
	v.onEnded = nil
	v.mu.Unlock()

	if cb != nil {
		// Separate goroutine so the callback may touch the speaker.
		go cb()
	}
}

// OnEnded registers a one-shot callback for the natural end of the source.
// It replaces any earlier registration.
func (v *Voice) OnEnded(f func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onEnded = f
}

func (v *Voice) Pause() {
	v.setPaused(true)
}

func (v *Voice) Resume() {
	v.setPaused(false)
}

func (v *Voice) setPaused(paused bool) {
	v.spk.Lock()
	defer v.spk.Unlock()
	if v.ctrl != nil {
		v.ctrl.Paused = paused
	}
}

// Paused reports whether the voice is paused. Unstarted voices count as paused.
func (v *Voice) Paused() bool {
	v.spk.Lock()
	defer v.spk.Unlock()
	return v.ctrl == nil || v.ctrl.Paused
}

// SetVolume sets the linear gain, clamped to [0,1].
func (v *Voice) SetVolume(level float64) {
	v.spk.Lock()
	defer v.spk.Unlock()
	v.gain.level = Clamp(level)
}

func (v *Voice) Volume() float64 {
	v.spk.Lock()
	defer v.spk.Unlock()
	return v.gain.level
}

// Seek moves the read position, clamped to the source length.
func (v *Voice) Seek(d time.Duration) error {
	v.spk.Lock()
	defer v.spk.Unlock()

	n := v.format.SampleRate.N(d)
	if n < 0 {
		n = 0
	}
	if l := v.src.Len(); n > l {
		n = l
	}
	return v.src.Seek(n)
}

func (v *Voice) Position() time.Duration {
	v.spk.Lock()
	defer v.spk.Unlock()
	return v.format.SampleRate.D(v.src.Position())
}

func (v *Voice) Duration() time.Duration {
	return v.format.SampleRate.D(v.src.Len())
}

// Ended reports whether the source played to its end.
func (v *Voice) Ended() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ended
}

// Close silences the voice and releases the source. Idempotent.
func (v *Voice) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.onEnded = nil
	v.mu.Unlock()

	v.spk.Lock()
	if v.ctrl != nil {
		// A nil streamer makes the Ctrl report drained, so the mixer drops it.
		v.ctrl.Streamer = nil
	}
	v.spk.Unlock()

	if c, ok := v.src.(beep.StreamSeekCloser); ok {
		return c.Close()
	}
	return nil
}

// Clamp limits a volume level to [0,1].
func Clamp(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}

// gain scales samples linearly.
type gain struct {
	Streamer beep.Streamer
	level    float64
}

func (g *gain) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = g.Streamer.Stream(samples)
	for i := range samples[:n] {
		samples[i][0] *= g.level
		samples[i][1] *= g.level
	}
	return n, ok
}

func (g *gain) Err() error {
	return g.Streamer.Err()
}
