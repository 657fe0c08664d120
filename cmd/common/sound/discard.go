package sound

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// Discard is a Speaker without a device. Streams are only consumed when
// Drain is called, which makes it the output for builds without cgo and the
// stand-in device in tests.
type Discard struct {
	mu       sync.Mutex
	inits    int
	playing  []beep.Streamer
	InitErr  error
	LastPeak float64
}

func (d *Discard) Init(sr beep.SampleRate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.InitErr != nil {
		return d.InitErr
	}
	d.inits++
	return nil
}

func (d *Discard) Play(s beep.Streamer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = append(d.playing, s)
}

func (d *Discard) Lock()   { d.mu.Lock() }
func (d *Discard) Unlock() { d.mu.Unlock() }

// Active returns how many streamers are still being mixed.
func (d *Discard) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.playing)
}

// Drain pulls n samples through every active streamer, dropping the ones
// that finish, like the speaker's mixer does. LastPeak records the loudest
// sample seen in this call.
func (d *Discard) Drain(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([][2]float64, n)
	peak := 0.0
	kept := d.playing[:0]
	for _, s := range d.playing {
		filled := 0
		ok := true
		for filled < n && ok {
			var m int
			m, ok = s.Stream(buf[filled:])
			filled += m
			if m == 0 {
				break
			}
		}
		for _, smp := range buf[:filled] {
			if abs(smp[0]) > peak {
				peak = abs(smp[0])
			}
		}
		if ok {
			kept = append(kept, s)
		}
	}
	d.playing = kept
	d.LastPeak = peak
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
