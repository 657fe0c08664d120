package team

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gigurra/aegis/cmd/team/roster"
	"github.com/gigurra/aegis/cmd/team/theme"
)

var (
	nameStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	themeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	factStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("250"))
	askStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const volumeStep = 0.1

// changedMsg means the theme manager published a new state.
type changedMsg struct{}

// promptModel shows the playing theme and asks whether to keep listening
// once the clip window has passed. It quits when the theme stops.
type promptModel struct {
	themes      *theme.Manager
	member      roster.Member
	theme       roster.Theme
	changed     chan struct{}
	unsubscribe func()

	state   theme.State
	started bool
	volume  float64
}

func newPrompt(themes *theme.Manager, member roster.Member, t roster.Theme) *promptModel {
	m := &promptModel{
		themes:  themes,
		member:  member,
		theme:   t,
		changed: make(chan struct{}, 1),
		volume:  theme.DefaultVolume,
	}
	m.unsubscribe = themes.Subscribe(func(theme.State) {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	})
	return m
}

func (m *promptModel) wait() tea.Cmd {
	return func() tea.Msg {
		<-m.changed
		return changedMsg{}
	}
}

func (m *promptModel) Init() tea.Cmd {
	m.sync()
	return m.wait()
}

// sync reads the manager state. Returns true when the theme has finished.
func (m *promptModel) sync() bool {
	m.state = m.themes.State()
	if m.state.IsPlaying {
		m.started = true
	}
	return m.started && !m.state.IsPlaying
}

func (m *promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		if m.sync() {
			return m, tea.Quit
		}
		return m, m.wait()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.themes.Close()
			return m, tea.Quit
		case "y", "enter":
			if m.state.ShowContinuePrompt {
				m.themes.ContinuePlaying()
			}
		case "n":
			if m.state.ShowContinuePrompt {
				m.themes.StopAfterTheme()
			}
		case "s":
			m.themes.StopTheme()
		case "m":
			m.themes.ToggleMute()
			if !m.themes.State().IsMuted {
				m.volume = theme.DefaultVolume
			}
		case "+", "=":
			m.setVolume(m.volume + volumeStep)
		case "-":
			m.setVolume(m.volume - volumeStep)
		}
		m.sync()
	}
	return m, nil
}

func (m *promptModel) setVolume(v float64) {
	if m.state.IsMuted {
		return
	}
	m.volume = min(max(v, 0), 1)
	m.themes.SetVolume(m.volume)
}

func (m *promptModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s · %s\n", nameStyle.Render(m.member.Name), m.member.Position)
	fmt.Fprintf(&b, "%s\n", themeStyle.Render("♪ "+m.theme.Name))
	if m.theme.Description != "" {
		fmt.Fprintf(&b, "%s\n", m.theme.Description)
	}
	if m.member.FunFact != "" {
		fmt.Fprintf(&b, "%s\n", factStyle.Render("Fun fact: "+m.member.FunFact))
	}
	b.WriteString("\n")

	switch {
	case m.state.ShowContinuePrompt:
		b.WriteString(askStyle.Render("Keep playing? [y]es / [n]o"))
	case m.state.Phase == theme.PhaseContinuing:
		b.WriteString("Playing to the end")
	case m.state.IsPlaying && m.state.Active == nil:
		b.WriteString(mutedStyle.Render("Stopping..."))
	case m.state.IsPlaying:
		b.WriteString("Playing")
	}
	if m.state.IsMuted {
		b.WriteString(mutedStyle.Render(" (muted)"))
	} else {
		fmt.Fprintf(&b, " · volume %d%%", int(m.volume*100+0.5))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("y keep playing · n stop · s stop · m mute · +/- volume · q quit"))
	b.WriteString("\n")
	return b.String()
}
