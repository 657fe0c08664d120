package widget

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gigurra/aegis/cmd/common/clock"
	"github.com/gigurra/aegis/cmd/common/notify"
	"github.com/gigurra/aegis/cmd/music/catalog"
	"github.com/gigurra/aegis/cmd/music/player"
	"github.com/gigurra/aegis/cmd/music/search"
	"github.com/gigurra/aegis/cmd/music/session"
	"github.com/gigurra/aegis/cmd/team/roster"
	"github.com/gigurra/aegis/cmd/team/theme"
)

type offlineSearcher struct {
	client *search.Client
}

func (s offlineSearcher) Search(_ context.Context, query string, max int) []search.Result {
	return s.client.Offline(query, max)
}

type fakePlayer struct {
	mu     sync.Mutex
	events player.Events
	paused bool
}

func (p *fakePlayer) Load(_ context.Context, _ string, _ bool) error {
	p.events.OnState(player.StatePlaying)
	return nil
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

func (p *fakePlayer) Destroy() {}

type silentHandle struct {
	mu      sync.Mutex
	volume  float64
	onEnded func()
}

func (h *silentHandle) Seek(time.Duration) error { return nil }
func (h *silentHandle) Play() error              { return nil }
func (h *silentHandle) Pause()                   {}
func (h *silentHandle) Close() error             { return nil }

func (h *silentHandle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = v
}

func (h *silentHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (h *silentHandle) OnEnded(f func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEnded = f
}

// end plays the clip out to its last sample.
func (h *silentHandle) end() {
	h.mu.Lock()
	f := h.onEnded
	h.onEnded = nil
	h.mu.Unlock()
	if f != nil {
		f()
	}
}

type handleLog struct {
	mu      sync.Mutex
	handles []*silentHandle
}

func (l *handleLog) Open(context.Context, string) (theme.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h := &silentHandle{}
	l.handles = append(l.handles, h)
	return h, nil
}

func (l *handleLog) last() *silentHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.handles) == 0 {
		return nil
	}
	return l.handles[len(l.handles)-1]
}

func newTestModel(t *testing.T) (model, *clock.Manual) {
	t.Helper()
	m, clk, _ := newTestModelWithHandles(t)
	return m, clk
}

func newTestModelWithHandles(t *testing.T) (model, *clock.Manual, *handleLog) {
	t.Helper()
	status := &statusLine{}
	cat := catalog.Default()
	music := session.New(session.Options{
		Searcher: offlineSearcher{client: search.New("", cat)},
		NewPlayer: func(ev player.Events) session.Player {
			return &fakePlayer{events: ev}
		},
		Catalog:  cat,
		Notifier: notify.Func(status.set),
	})
	clk := clock.NewManual(time.Unix(0, 0))
	handles := &handleLog{}
	themes := theme.NewManager(handles, clk)
	m := newModel(context.Background(), music, themes, roster.Default(), "/srv", status)
	t.Cleanup(m.close)
	return m, clk, handles
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds keys to the model, running any background command inline.
func press(t *testing.T, m model, keys ...string) model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(key(k))
		m = next.(model)
		if cmd != nil {
			if msg := cmd(); msg != nil {
				if _, ok := msg.(doneMsg); ok {
					next, _ = m.Update(msg)
					m = next.(model)
				}
			}
		}
	}
	return m
}

func TestWidget_SearchSelectPlay(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "/", "a", "d", "e", "l", "e", "enter")
	if !m.musicState.ShowSelection {
		t.Fatalf("selection not shown: %+v", m.musicState)
	}
	if !strings.Contains(m.View(), "Rolling in the Deep - Adele") {
		t.Errorf("results missing from view:\n%s", m.View())
	}

	m = press(t, m, "down", "enter")
	st := m.musicState
	if !st.IsPlaying || st.CurrentSong == nil || st.CurrentSong.Title != "Hello - Adele" {
		t.Fatalf("state after select = %+v", st)
	}
	if !strings.Contains(m.View(), "▶ Hello - Adele") {
		t.Errorf("now playing missing:\n%s", m.View())
	}

	m = press(t, m, " ")
	if !m.musicState.IsPaused {
		t.Error("space did not pause")
	}
	m = press(t, m, " ")
	if m.musicState.IsPaused {
		t.Error("space did not resume")
	}

	m = press(t, m, "s")
	if m.musicState.CurrentSong != nil {
		t.Error("stop left a current song")
	}
}

func TestWidget_EscClosesSelection(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "/", "a", "d", "e", "l", "e", "enter", "esc")
	if m.musicState.ShowSelection || len(m.musicState.SearchResults) != 0 {
		t.Errorf("selection still open: %+v", m.musicState)
	}
}

func TestWidget_ThemeHandoff(t *testing.T) {
	m, clk := newTestModel(t)
	m = press(t, m, "r")
	if !m.musicState.IsPlaying {
		t.Fatal("random did not start music")
	}

	// Tony Stark is the fifth member of the default roster.
	m = press(t, m, "t", "down", "down", "down", "down", "enter")
	if !m.musicState.IsPaused {
		t.Error("music not paused for the theme")
	}
	if a := m.themeState.Active; a == nil || a.MemberName != "Tony Stark" {
		t.Fatalf("theme not active: %+v", m.themeState)
	}

	clk.Advance(theme.FadeInDuration + 10*time.Second)
	next, _ := m.Update(tickMsg(time.Now()))
	m = next.(model)
	if !strings.Contains(m.View(), "Keep playing the theme?") {
		t.Fatalf("prompt missing:\n%s", m.View())
	}

	m = press(t, m, "n")
	clk.Advance(theme.FadeOutDuration)
	m = m.refresh()
	if m.musicState.IsPaused {
		t.Error("music not resumed after the theme")
	}
	if m.themeState.IsPlaying {
		t.Error("theme still playing")
	}
}

func TestWidget_MusicResumesAfterThemeEnds(t *testing.T) {
	m, clk, handles := newTestModelWithHandles(t)
	m = press(t, m, "r", "t", "down", "down", "down", "down", "enter")
	if !m.musicState.IsPaused {
		t.Fatal("music not paused for the theme")
	}

	clk.Advance(theme.FadeInDuration + 10*time.Second)
	m = m.refresh()
	m = press(t, m, "y")
	if !m.musicState.IsPaused {
		t.Fatal("music resumed while the theme keeps playing")
	}

	handles.last().end()
	m = m.refresh()
	if m.themeState.IsPlaying {
		t.Error("theme still playing after its end")
	}
	if m.musicState.IsPaused || !m.musicState.IsPlaying {
		t.Errorf("music not resumed after the theme ended: %+v", m.musicState)
	}
}

func TestWidget_CopyLink(t *testing.T) {
	var copied string
	old := copyToClipboard
	copyToClipboard = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { copyToClipboard = old })

	m, _ := newTestModel(t)
	m = press(t, m, "r", "c")
	if want := catalog.WatchURL(m.musicState.CurrentSong.ID); copied != want {
		t.Errorf("copied %q, want %q", copied, want)
	}
}

func TestFormatPosition(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{61500 * time.Millisecond, "1:01"},
		{10 * time.Minute, "10:00"},
	}
	for _, tt := range tests {
		if got := formatPosition(tt.in); got != tt.want {
			t.Errorf("formatPosition(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
