package player

import (
	"math"
	"time"

	"github.com/gigurra/aegis/cmd/common/sound"
	"github.com/gopxl/beep/v2"
)

// ChimeLength is how long the placeholder bell rings.
const ChimeLength = 6 * time.Second

// bell partials relative to the fundamental, with their decay rates.
var bellPartials = []struct {
	ratio, amp, decay float64
}{
	{1.0, 0.50, 1.2},
	{2.0, 0.25, 1.8},
	{2.76, 0.15, 2.5},
	{5.4, 0.08, 3.5},
}

// chime is a synthesized bell that rings three times. It stands in for the
// real audio of a video id, which the fallback has no way to resolve.
type chime struct {
	pos, len int
	rate     beep.SampleRate
}

func newChime() (beep.StreamSeeker, beep.Format) {
	format := beep.Format{SampleRate: sound.SampleRate, NumChannels: 2, Precision: 2}
	return &chime{len: format.SampleRate.N(ChimeLength), rate: format.SampleRate}, format
}

func (c *chime) Stream(samples [][2]float64) (n int, ok bool) {
	if c.pos >= c.len {
		return 0, false
	}
	strike := c.len / 3
	for i := range samples {
		if c.pos >= c.len {
			return i, true
		}
		t := float64(c.pos%strike) / float64(c.rate)
		v := 0.0
		for _, p := range bellPartials {
			v += p.amp * math.Exp(-p.decay*t) * math.Sin(2*math.Pi*880*p.ratio*t)
		}
		samples[i][0] = v
		samples[i][1] = v
		c.pos++
	}
	return len(samples), true
}

func (c *chime) Err() error { return nil }

func (c *chime) Len() int { return c.len }

func (c *chime) Position() int { return c.pos }

func (c *chime) Seek(p int) error {
	if p < 0 {
		p = 0
	}
	if p > c.len {
		p = c.len
	}
	c.pos = p
	return nil
}
