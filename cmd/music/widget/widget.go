// Package widget is the interactive music panel: search, pick a result,
// pause and resume, and play team themes with the music handed off.
package widget

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gigurra/aegis/cmd/common"
	"github.com/gigurra/aegis/cmd/common/notify"
	"github.com/gigurra/aegis/cmd/common/table"
	"github.com/gigurra/aegis/cmd/music/app"
	"github.com/gigurra/aegis/cmd/music/catalog"
	"github.com/gigurra/aegis/cmd/music/session"
	"github.com/gigurra/aegis/cmd/team/roster"
	"github.com/gigurra/aegis/cmd/team/theme"
	"github.com/spf13/cobra"
)

type Params struct {
	Verbose bool `optional:"true" help:"Debug logging to ~/.aegis/aegis.log"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "widget",
		Short: "Interactive music panel",
		Long: `Search and play background music, and play team member themes.

Keys:
  /        search          r  random song
  space    pause/resume    s  stop
  t        team themes     c  copy song link
  q        quit`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			common.SetupLogging(params.Verbose, true)
			if err := run(); err != nil {
				fmt.Fprintf(os.Stderr, "music widget: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func run() error {
	env, err := app.Load()
	if err != nil {
		return err
	}
	r, err := roster.LoadOrDefault(env.Config.RosterPath)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}

	status := &statusLine{}
	music := env.NewSession(notify.Func(status.set))
	themes := theme.NewManager(theme.FileOpener{Speaker: env.Speaker}, env.Clock)

	m := newModel(context.Background(), music, themes, r, env.Config.MusicDir, status)
	defer m.close()

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	playingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	promptStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

// statusLine collects notices from the session for display.
type statusLine struct {
	mu   sync.Mutex
	text string
}

func (s *statusLine) set(title, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = title + ": " + message
}

func (s *statusLine) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeMembers
)

type tickMsg time.Time

// doneMsg reports that a background operation returned.
type doneMsg struct{}

type model struct {
	ctx      context.Context
	music    *session.Manager
	themes   *theme.Manager
	handoff  *theme.Handoff
	roster   *roster.Roster
	musicDir string
	status   *statusLine

	mode       mode
	input      string
	cursor     int
	width      int
	musicState session.State
	themeState theme.State
}

func newModel(ctx context.Context, music *session.Manager, themes *theme.Manager, r *roster.Roster, musicDir string, status *statusLine) model {
	return model{
		ctx:      ctx,
		music:    music,
		themes:   themes,
		handoff:  &theme.Handoff{Themes: themes, Music: music},
		roster:   r,
		musicDir: musicDir,
		status:   status,
		width:    80,
	}.refresh()
}

func (m model) close() {
	m.music.Close()
	m.themes.Close()
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) refresh() model {
	m.musicState = m.music.State()
	m.themeState = m.themes.State()
	if m.musicState.ShowSelection && m.cursor >= len(m.musicState.SearchResults) {
		m.cursor = 0
	}
	return m
}

// background runs f off the UI goroutine.
func background(f func()) tea.Cmd {
	return func() tea.Msg {
		f()
		return doneMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m.refresh(), tickCmd()
	case doneMsg:
		return m.refresh(), nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch {
		case m.mode == modeSearch:
			return m.updateSearch(msg)
		case m.themeState.ShowContinuePrompt:
			return m.updatePrompt(msg)
		case m.mode == modeMembers:
			return m.updateMembers(msg)
		case m.musicState.ShowSelection:
			return m.updateSelection(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		if m.themeState.IsPlaying {
			m.handoff.Close()
			return m.refresh(), nil
		}
		return m, tea.Quit
	case "/":
		m.mode = modeSearch
		m.input = ""
	case "r":
		return m, background(func() { _ = m.music.PlayRandomSong(m.ctx) })
	case " ":
		if m.musicState.IsPaused {
			m.music.ResumeMusic()
		} else {
			m.music.PauseMusic()
		}
		return m.refresh(), nil
	case "s":
		m.music.StopMusic()
		return m.refresh(), nil
	case "t":
		m.mode = modeMembers
		m.cursor = 0
	case "c":
		if song := m.musicState.CurrentSong; song != nil {
			link := catalog.WatchURL(song.ID)
			if err := copyToClipboard(link); err != nil {
				m.status.set("Clipboard", err.Error())
			} else {
				m.status.set("Copied", link)
			}
		}
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
	case tea.KeyEnter:
		m.mode = modeBrowse
		query := strings.TrimSpace(m.input)
		if query == "" {
			return m, nil
		}
		m.cursor = 0
		return m, background(func() { m.music.SearchAndPlay(m.ctx, query, "") })
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m model) updateSelection(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	results := m.musicState.SearchResults
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(results)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(results) {
			song := results[m.cursor]
			return m, background(func() { _ = m.music.SelectAndPlay(m.ctx, song) })
		}
	case "esc", "q":
		m.music.CloseSongSelection()
		return m.refresh(), nil
	}
	return m, nil
}

func (m model) updateMembers(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	members := m.roster.Members
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(members)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(members) {
			id := members[m.cursor].ID
			m.mode = modeBrowse
			return m, background(func() {
				if err := m.handoff.Play(m.ctx, m.roster, id, m.musicDir); err != nil {
					m.status.set("Theme", err.Error())
				}
			})
		}
	case "esc", "q":
		m.mode = modeBrowse
	}
	return m, nil
}

func (m model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.themes.ContinuePlaying()
	case "n", "esc":
		m.handoff.Close()
	}
	return m.refresh(), nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("♪ AEGIS music"))
	b.WriteString("\n\n")
	b.WriteString(m.nowPlaying())
	b.WriteString("\n")

	if m.themeState.Active != nil {
		fmt.Fprintf(&b, "\n🎬 %s: %s", m.themeState.Active.MemberName, m.themeState.Active.ThemeName)
		if m.themeState.IsMuted {
			b.WriteString(dimStyle.Render(" (muted)"))
		}
		b.WriteString("\n")
	}
	if m.themeState.ShowContinuePrompt {
		b.WriteString(promptStyle.Render("Keep playing the theme? [y]es / [n]o"))
		b.WriteString("\n")
	}

	switch {
	case m.mode == modeSearch:
		fmt.Fprintf(&b, "\nSearch: %s█\n", m.input)
	case m.mode == modeMembers:
		b.WriteString("\n")
		for i, mem := range m.roster.Members {
			b.WriteString(m.row(i, fmt.Sprintf("%s - %s", mem.Name, mem.Position)))
		}
	case m.musicState.IsSearching && !m.musicState.ShowSelection:
		b.WriteString(dimStyle.Render("\nSearching..."))
		b.WriteString("\n")
	case m.musicState.ShowSelection:
		b.WriteString("\n")
		for i, r := range m.musicState.SearchResults {
			b.WriteString(m.row(i, fmt.Sprintf("%s · %s · %s", r.Title, r.ChannelTitle, r.Duration)))
		}
	}

	if s := m.status.get(); s != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(table.TruncateWithEllipsis(s, m.width)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m model) row(i int, text string) string {
	line := table.PadRight(text, m.width-4)
	if i == m.cursor {
		return "  " + selectedStyle.Render(line) + "\n"
	}
	return "  " + line + "\n"
}

func (m model) nowPlaying() string {
	s := m.musicState
	if s.CurrentSong == nil {
		return dimStyle.Render("Nothing playing")
	}
	title := table.TruncateWithEllipsis(s.CurrentSong.Title, m.width-20)
	pos := formatPosition(s.Position)
	switch {
	case s.IsPaused:
		return pausedStyle.Render("⏸ " + title + "  " + pos)
	case s.IsPlaying:
		return playingStyle.Render("▶ " + title + "  " + pos)
	}
	return dimStyle.Render("… " + title)
}

func (m model) help() string {
	switch {
	case m.mode == modeSearch:
		return "enter search · esc cancel"
	case m.themeState.ShowContinuePrompt:
		return "y keep playing · n stop"
	case m.mode == modeMembers:
		return "↑/↓ choose · enter play theme · esc back"
	case m.musicState.ShowSelection:
		return "↑/↓ choose · enter play · esc close"
	}
	return "/ search · r random · space pause · s stop · t themes · c copy link · q quit"
}

func formatPosition(d time.Duration) string {
	d = d.Truncate(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
