package theme

import (
	"context"
	"sync"

	"github.com/gigurra/aegis/cmd/team/roster"
)

// MusicPauser is the background music that has to stay quiet while a theme
// plays.
type MusicPauser interface {
	PauseMusic()
	ResumeMusic()
}

// Handoff pauses background music for the length of a member theme. The
// music comes back when the theme view is closed or when the theme goes
// quiet on its own.
type Handoff struct {
	Themes *Manager
	Music  MusicPauser

	mu    sync.Mutex
	unsub func()
}

func (h *Handoff) Play(ctx context.Context, r *roster.Roster, memberID, musicDir string) error {
	if _, err := r.Member(memberID); err != nil {
		return err
	}
	if h.Music != nil {
		h.Music.PauseMusic()
		h.watch()
	}
	return h.Themes.PlayMember(ctx, r, memberID, musicDir)
}

// Close stops the theme and gives the floor back to the music.
func (h *Handoff) Close() {
	h.release()
	h.Themes.StopTheme()
	if h.Music != nil {
		h.Music.ResumeMusic()
	}
}

func (h *Handoff) watch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unsub != nil {
		return
	}
	h.unsub = h.Themes.Subscribe(func(s State) {
		if s.Phase == PhaseIdle && !s.IsPlaying && h.release() {
			h.Music.ResumeMusic()
		}
	})
}

// release drops the subscription and reports whether one was active.
func (h *Handoff) release() bool {
	h.mu.Lock()
	unsub := h.unsub
	h.unsub = nil
	h.mu.Unlock()
	if unsub == nil {
		return false
	}
	unsub()
	return true
}
