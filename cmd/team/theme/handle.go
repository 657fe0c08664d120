package theme

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gigurra/aegis/cmd/common/sound"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// Handle is one opened, ready-to-play clip.
type Handle interface {
	Seek(d time.Duration) error
	Play() error
	Pause()
	SetVolume(level float64)
	Volume() float64
	// OnEnded registers a one-shot callback for the natural end.
	OnEnded(f func())
	Close() error
}

// Opener opens a clip and returns once it can play.
type Opener interface {
	Open(ctx context.Context, path string) (Handle, error)
}

type OpenerFunc func(ctx context.Context, path string) (Handle, error)

func (f OpenerFunc) Open(ctx context.Context, path string) (Handle, error) {
	return f(ctx, path)
}

// FileOpener decodes local mp3 and wav files onto a speaker.
type FileOpener struct {
	Speaker sound.Speaker
}

func (o FileOpener) Open(ctx context.Context, path string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var (
		src    beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		src, format, err = mp3.Decode(f)
	case ".wav":
		src, format, err = wav.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported audio format: %s", path)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	spk := o.Speaker
	if spk == nil {
		spk = sound.Default
	}
	v := sound.NewVoice(spk, src, format)
	v.SetVolume(0)
	if err := v.Start(true); err != nil {
		v.Close()
		return nil, fmt.Errorf("starting audio for %s: %w", path, err)
	}
	return voiceHandle{v}, nil
}

// voiceHandle adapts sound.Voice to Handle.
type voiceHandle struct {
	*sound.Voice
}

func (h voiceHandle) Play() error {
	h.Resume()
	return nil
}

// OnEnded fires right away for a clip that has already run out.
func (h voiceHandle) OnEnded(f func()) {
	h.Voice.OnEnded(f)
	if h.Ended() {
		h.Voice.OnEnded(nil)
		go f()
	}
}
