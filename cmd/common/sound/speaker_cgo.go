//go:build (linux && cgo) || windows || darwin

package sound

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// Default is the system speaker.
var Default Speaker = &systemSpeaker{}

type systemSpeaker struct {
	mu          sync.Mutex
	initialized bool
}

func (s *systemSpeaker) Init(sr beep.SampleRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

func (s *systemSpeaker) Play(st beep.Streamer) {
	speaker.Play(st)
}

func (s *systemSpeaker) Lock() {
	speaker.Lock()
}

func (s *systemSpeaker) Unlock() {
	speaker.Unlock()
}
