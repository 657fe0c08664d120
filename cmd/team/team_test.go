package team

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gigurra/aegis/cmd/common/clock"
	"github.com/gigurra/aegis/cmd/team/roster"
	"github.com/gigurra/aegis/cmd/team/theme"
)

func TestRenderRoster(t *testing.T) {
	r := roster.Default()

	tests := []struct {
		name     string
		category string
		want     []string
		notWant  []string
	}{
		{"everyone", "", []string{"Tony Stark", "Daenerys Targaryen", "Avengers Theme"}, nil},
		{"all keyword", "all", []string{"Tony Stark", "Alex Dunphy"}, nil},
		{"secretariat", "secretariat", []string{"Daenerys Targaryen", "Alex Dunphy"}, []string{"Tony Stark"}},
		{"unknown", "Press", []string{"No members in category", "Executive Board"}, []string{"Tony Stark"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := renderRoster(r, tt.category)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output should not contain %q:\n%s", w, out)
				}
			}
		})
	}
}

type clip struct {
	mu      sync.Mutex
	volume  float64
	onEnded func()
}

func (c *clip) Seek(time.Duration) error { return nil }
func (c *clip) Play() error              { return nil }
func (c *clip) Pause()                   {}
func (c *clip) Close() error             { return nil }

func (c *clip) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = v
}

func (c *clip) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

func (c *clip) OnEnded(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEnded = f
}

func (c *clip) end() {
	c.mu.Lock()
	f := c.onEnded
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

func startPrompt(t *testing.T) (*promptModel, *clip, *clock.Manual) {
	t.Helper()
	c := &clip{}
	clk := clock.NewManual(time.Unix(0, 0))
	themes := theme.NewManager(theme.OpenerFunc(func(context.Context, string) (theme.Handle, error) {
		return c, nil
	}), clk)
	t.Cleanup(themes.Close)

	r := roster.Default()
	member, err := r.Member("tony-stark")
	if err != nil {
		t.Fatal(err)
	}
	p := newPrompt(themes, member, r.ThemeFor(member.ID))
	t.Cleanup(p.unsubscribe)

	if err := themes.PlayMember(context.Background(), r, member.ID, "/srv"); err != nil {
		t.Fatal(err)
	}
	p.Init()
	return p, c, clk
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPrompt_ContinueToEnd(t *testing.T) {
	p, c, clk := startPrompt(t)
	if !strings.Contains(p.View(), "Avengers Theme") || !strings.Contains(p.View(), "arc reactor") {
		t.Errorf("view missing theme details:\n%s", p.View())
	}

	clk.Advance(theme.FadeInDuration + 10*time.Second)
	if _, cmd := p.Update(changedMsg{}); isQuit(cmd) {
		t.Fatal("quit while the prompt is up")
	}
	if !strings.Contains(p.View(), "Keep playing?") {
		t.Fatalf("prompt missing:\n%s", p.View())
	}

	p.Update(keyMsg("y"))
	if p.state.Phase != theme.PhaseContinuing {
		t.Fatalf("phase = %s, want continuing", p.state.Phase)
	}

	c.end()
	if _, cmd := p.Update(changedMsg{}); !isQuit(cmd) {
		t.Error("did not quit when the theme ended")
	}
}

func TestPrompt_StopAfterTheme(t *testing.T) {
	p, _, clk := startPrompt(t)
	clk.Advance(theme.FadeInDuration + 10*time.Second)
	p.Update(changedMsg{})

	p.Update(keyMsg("n"))
	clk.Advance(theme.FadeOutDuration)
	if _, cmd := p.Update(changedMsg{}); !isQuit(cmd) {
		t.Error("did not quit after stopping")
	}
}

func TestPrompt_MuteAndVolume(t *testing.T) {
	p, c, clk := startPrompt(t)
	clk.Advance(theme.FadeInDuration)

	p.Update(keyMsg("+"))
	if got := c.Volume(); got < 0.39 || got > 0.41 {
		t.Errorf("volume after + = %v, want 0.4", got)
	}

	p.Update(keyMsg("m"))
	p.Update(keyMsg("+"))
	if got := c.Volume(); got != 0 {
		t.Errorf("volume while muted = %v", got)
	}
	if !strings.Contains(p.View(), "(muted)") {
		t.Error("view does not show mute")
	}

	p.Update(keyMsg("m"))
	if got := c.Volume(); got != theme.DefaultVolume {
		t.Errorf("volume after unmute = %v, want %v", got, theme.DefaultVolume)
	}
}

func TestStartTheme_NotPlaying(t *testing.T) {
	themes := theme.NewManager(theme.OpenerFunc(func(context.Context, string) (theme.Handle, error) {
		return nil, errors.New("missing file")
	}), clock.NewManual(time.Unix(0, 0)))
	t.Cleanup(themes.Close)

	r := roster.Default()
	member, err := r.Member("tony-stark")
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	playing, err := startTheme(context.Background(), themes, r, member, "/srv", &out)
	if err != nil {
		t.Fatalf("startTheme() error = %v", err)
	}
	if playing {
		t.Error("startTheme() reported playing for a missing clip")
	}
	if !strings.Contains(out.String(), "Avengers Theme is not playing") {
		t.Errorf("output = %q", out.String())
	}
}

func TestStartTheme_Playing(t *testing.T) {
	c := &clip{}
	themes := theme.NewManager(theme.OpenerFunc(func(context.Context, string) (theme.Handle, error) {
		return c, nil
	}), clock.NewManual(time.Unix(0, 0)))
	t.Cleanup(themes.Close)

	r := roster.Default()
	member, _ := r.Member("tony-stark")

	var out bytes.Buffer
	playing, err := startTheme(context.Background(), themes, r, member, "/srv", &out)
	if err != nil || !playing {
		t.Fatalf("startTheme() = %v, %v", playing, err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}
