package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gigurra/aegis/cmd/common/clock"
	"github.com/gigurra/aegis/cmd/common/sound"
	"github.com/gopxl/beep/v2"
)

func newTestFallback(t *testing.T) (*FallbackPlayer, *sound.Discard, *clock.Manual, *recorder) {
	t.Helper()
	spk := &sound.Discard{}
	clk := clock.NewManual(time.Unix(0, 0))
	rec := newRecorder()
	return NewFallback(spk, clk, nil, rec.events()), spk, clk, rec
}

func TestFallbackLoadAutoplay(t *testing.T) {
	f, spk, _, rec := newTestFallback(t)

	if got := f.State(); got != StateUnstarted {
		t.Fatalf("state before load = %v, want unstarted", got)
	}
	if err := f.Load(context.Background(), "abc", true); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	rec.waitFor(t, StatePlaying)

	if got := f.State(); got != StatePlaying {
		t.Errorf("state = %v, want playing", got)
	}
	if spk.Active() != 1 {
		t.Errorf("active streams = %d, want 1", spk.Active())
	}
	if f.Duration() != ChimeLength {
		t.Errorf("duration = %v, want %v", f.Duration(), ChimeLength)
	}

	spk.Drain(4410)
	if spk.LastPeak == 0 {
		t.Error("expected audible output while playing")
	}
	if f.CurrentTime() != 100*time.Millisecond {
		t.Errorf("current time = %v, want 100ms", f.CurrentTime())
	}
}

func TestFallbackLoadPaused(t *testing.T) {
	f, spk, _, rec := newTestFallback(t)

	if err := f.Load(context.Background(), "abc", false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := f.State(); got != StatePaused {
		t.Errorf("state = %v, want paused", got)
	}
	spk.Drain(4410)
	if spk.LastPeak != 0 {
		t.Error("expected silence before Play")
	}

	f.Play()
	rec.waitFor(t, StatePlaying)
	f.Pause()
	rec.waitFor(t, StatePaused)
	f.Pause()

	states, _, _ := rec.snapshot()
	if len(states) != 2 {
		t.Errorf("states = %v, want exactly playing then paused", states)
	}
}

func TestFallbackStopRewinds(t *testing.T) {
	f, spk, _, _ := newTestFallback(t)
	if err := f.Load(context.Background(), "abc", true); err != nil {
		t.Fatal(err)
	}
	spk.Drain(44100)
	if f.CurrentTime() == 0 {
		t.Fatal("expected progress")
	}

	f.Stop()
	if f.CurrentTime() != 0 {
		t.Errorf("current time after stop = %v, want 0", f.CurrentTime())
	}
	if got := f.State(); got != StatePaused {
		t.Errorf("state after stop = %v, want paused", got)
	}
}

func TestFallbackVolumeClamped(t *testing.T) {
	f, spk, _, _ := newTestFallback(t)
	f.SetVolume(5)
	if err := f.Load(context.Background(), "abc", true); err != nil {
		t.Fatal(err)
	}
	spk.Drain(4410)
	loud := spk.LastPeak

	f.SetVolume(-1)
	spk.Drain(4410)
	if spk.LastPeak != 0 {
		t.Errorf("peak at volume 0 = %v, want 0", spk.LastPeak)
	}
	if loud == 0 || loud > 1 {
		t.Errorf("peak at full volume = %v", loud)
	}
}

func TestFallbackEnds(t *testing.T) {
	f, spk, _, rec := newTestFallback(t)
	if err := f.Load(context.Background(), "abc", true); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, StatePlaying)

	spk.Drain(sound.SampleRate.N(ChimeLength) + 1000)
	rec.waitFor(t, StateEnded)

	if got := f.State(); got != StateEnded {
		t.Errorf("state = %v, want ended", got)
	}
	if spk.Active() != 0 {
		t.Errorf("active streams = %d, want 0", spk.Active())
	}

	// Playing an ended stream starts it over.
	f.Play()
	rec.waitFor(t, StatePlaying)
	if spk.Active() != 1 {
		t.Errorf("active streams after replay = %d, want 1", spk.Active())
	}
}

func TestFallbackTimePolling(t *testing.T) {
	f, spk, clk, rec := newTestFallback(t)
	if err := f.Load(context.Background(), "abc", true); err != nil {
		t.Fatal(err)
	}

	spk.Drain(sound.SampleRate.N(time.Second))
	clk.Advance(PollInterval)
	clk.Advance(PollInterval)

	_, times, _ := rec.snapshot()
	if len(times) != 2 {
		t.Fatalf("time updates = %d, want 2", len(times))
	}
	if times[0] != time.Second {
		t.Errorf("first time update = %v, want 1s", times[0])
	}

	f.Destroy()
	clk.Advance(time.Second)
	_, times, _ = rec.snapshot()
	if len(times) != 2 {
		t.Errorf("time updates after destroy = %d, want 2", len(times))
	}
	if clk.Pending() != 0 {
		t.Errorf("pending timers after destroy = %d", clk.Pending())
	}
}

func TestFallbackDestroy(t *testing.T) {
	f, spk, _, _ := newTestFallback(t)
	if err := f.Load(context.Background(), "abc", true); err != nil {
		t.Fatal(err)
	}
	f.Destroy()
	f.Destroy()

	if got := f.State(); got != StateUnstarted {
		t.Errorf("state = %v, want unstarted", got)
	}
	spk.Drain(100)
	if spk.Active() != 0 {
		t.Errorf("active streams = %d, want 0", spk.Active())
	}
	f.Play()
	f.Pause()
	f.Stop()
}

func TestFallbackLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		spk    *sound.Discard
		source Source
	}{
		{
			name: "speaker init fails",
			spk:  &sound.Discard{InitErr: errors.New("no device")},
		},
		{
			name: "source fails",
			spk:  &sound.Discard{},
			source: func(string) (beep.StreamSeeker, beep.Format, error) {
				return nil, beep.Format{}, errors.New("bad source")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			f := NewFallback(tt.spk, clock.NewManual(time.Unix(0, 0)), tt.source, rec.events())
			if err := f.Load(context.Background(), "abc", true); err == nil {
				t.Fatal("expected error")
			}
			rec.waitFor(t, StateUnstarted)
			if got := f.State(); got != StateUnstarted {
				t.Errorf("state = %v, want unstarted", got)
			}
		})
	}
}
