package team

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gigurra/aegis/cmd/common"
	"github.com/gigurra/aegis/cmd/common/clock"
	"github.com/gigurra/aegis/cmd/common/config"
	"github.com/gigurra/aegis/cmd/common/sound"
	"github.com/gigurra/aegis/cmd/common/table"
	"github.com/gigurra/aegis/cmd/team/roster"
	"github.com/gigurra/aegis/cmd/team/theme"
	gotable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "team",
		Short: "The conference team and their theme songs",
		SubCmds: []*cobra.Command{
			listCmd(),
			themeCmd(),
		},
	}.ToCobra()
}

type ListParams struct {
	Category string `short:"c" optional:"true" help:"Only show members of this category (\"All\" for everyone)"`
	Watch    bool   `short:"w" optional:"true" help:"Redraw when the roster file changes (needs roster_path in the config)"`
	Verbose  bool   `optional:"true" help:"Debug logging"`
}

func listCmd() *cobra.Command {
	return boa.CmdT[ListParams]{
		Use:         "list",
		Short:       "Show the team roster",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ListParams, cmd *cobra.Command, args []string) {
			common.SetupLogging(params.Verbose, false)
			if err := runList(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "team list: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runList(params *ListParams, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	r, err := roster.LoadOrDefault(cfg.RosterPath)
	if err != nil {
		return err
	}
	fmt.Fprint(out, renderRoster(r, params.Category))

	if !params.Watch {
		return nil
	}
	if cfg.RosterPath == "" {
		return fmt.Errorf("--watch needs roster_path in %s", config.ConfigPath())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return roster.Watch(ctx, cfg.RosterPath, func(r *roster.Roster, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "roster: %v\n", err)
			return
		}
		fmt.Fprint(out, "\033[2J\033[H")
		fmt.Fprint(out, renderRoster(r, params.Category))
	})
}

func renderRoster(r *roster.Roster, category string) string {
	members := r.ByCategory(category)
	if len(members) == 0 {
		return fmt.Sprintf("No members in category %q. Categories: %v\n", category, r.Categories())
	}

	t := table.New()
	t.AppendHeader(gotable.Row{"ID", "Name", "Position", "Category", "Theme"})
	for _, m := range members {
		t.AppendRow(gotable.Row{
			m.ID,
			m.Name,
			table.TruncateWithEllipsis(m.Position, 28),
			m.Category,
			r.ThemeFor(m.ID).Name,
		})
	}
	return t.Render() + "\n"
}

type ThemeParams struct {
	Member  string `pos:"true" help:"Member id, e.g. tony-stark"`
	Verbose bool   `optional:"true" help:"Debug logging to ~/.aegis/aegis.log"`
}

func themeCmd() *cobra.Command {
	return boa.CmdT[ThemeParams]{
		Use:   "theme",
		Short: "Play a member's theme clip",
		Long: `Plays the member's theme clip from the configured music directory.
When the clip window has passed you are asked whether to keep listening.

Keys: y keep playing · n stop · m mute · +/- volume · q quit`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ThemeParams, cmd *cobra.Command, args []string) {
			common.SetupLogging(params.Verbose, true)
			if err := runTheme(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "team theme: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runTheme(params *ThemeParams, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	r, err := roster.LoadOrDefault(cfg.RosterPath)
	if err != nil {
		return err
	}
	member, err := r.Member(params.Member)
	if err != nil {
		return err
	}

	themes := theme.NewManager(theme.FileOpener{Speaker: sound.Default}, clock.New())
	defer themes.Close()

	model := newPrompt(themes, member, r.ThemeFor(member.ID))
	defer model.unsubscribe()

	playing, err := startTheme(context.Background(), themes, r, member, cfg.MusicDir, out)
	if err != nil || !playing {
		return err
	}

	_, err = tea.NewProgram(model).Run()
	return err
}

// startTheme plays the member's theme. A clip that cannot be played is
// reported as not playing on out; the cause is in the log.
func startTheme(ctx context.Context, themes *theme.Manager, r *roster.Roster, member roster.Member, musicDir string, out io.Writer) (bool, error) {
	if err := themes.PlayMember(ctx, r, member.ID, musicDir); err != nil {
		return false, err
	}
	if themes.State().IsPlaying {
		return true, nil
	}
	fmt.Fprintf(out, "%s: %s is not playing (see %s)\n", member.Name, r.ThemeFor(member.ID).Name, common.LogPath())
	return false, nil
}
