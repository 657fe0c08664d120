package music

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/aegis/cmd/common"
	"github.com/gigurra/aegis/cmd/common/table"
	"github.com/gigurra/aegis/cmd/music/app"
	"github.com/gigurra/aegis/cmd/music/search"
	"github.com/gigurra/aegis/cmd/music/session"
	"github.com/gigurra/aegis/cmd/music/widget"
	gotable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "music",
		Short: "Background music for the conference floor",
		SubCmds: []*cobra.Command{
			searchCmd(),
			playCmd(),
			randomCmd(),
			widget.Cmd(),
		},
	}.ToCobra()
}

type SearchParams struct {
	Query   string `pos:"true" help:"Song to search for"`
	Artist  string `short:"a" optional:"true" help:"Artist, prepended to the query"`
	Max     int    `short:"n" optional:"true" help:"Maximum number of results" default:"5"`
	Verbose bool   `optional:"true" help:"Debug logging"`
}

func searchCmd() *cobra.Command {
	return boa.CmdT[SearchParams]{
		Use:         "search",
		Short:       "Search for songs",
		Long:        "Search the video catalog for songs. Without an API key or network the built-in catalog is searched.",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *SearchParams, cmd *cobra.Command, args []string) {
			common.SetupLogging(params.Verbose, false)
			if err := runSearch(cmd.Context(), params); err != nil {
				fmt.Fprintf(os.Stderr, "music search: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runSearch(ctx context.Context, params *SearchParams) error {
	env, err := app.Load()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query := params.Query
	if params.Artist != "" {
		query = params.Artist + " " + query
	}
	results := env.Searcher().Search(ctx, query, params.Max)
	if len(results) == 0 {
		env.Notifier.Notice(session.NoticeTitle, session.MsgNoSongs)
		return nil
	}
	fmt.Print(renderResults(results))
	return nil
}

func renderResults(results []search.Result) string {
	t := table.New()
	t.AppendHeader(gotable.Row{"#", "ID", "Title", "Channel", "Duration"})
	for i, r := range results {
		t.AppendRow(gotable.Row{
			strconv.Itoa(i + 1),
			r.ID,
			table.TruncateWithEllipsis(r.Title, 48),
			table.TruncateWithEllipsis(r.ChannelTitle, 24),
			r.Duration,
		})
	}
	return t.Render() + "\n"
}

type PlayParams struct {
	ID      string `pos:"true" help:"Video id to play"`
	Title   string `short:"t" optional:"true" help:"Title to show while playing"`
	Verbose bool   `optional:"true" help:"Debug logging"`
}

func playCmd() *cobra.Command {
	return boa.CmdT[PlayParams]{
		Use:         "play",
		Short:       "Play a song by id until it ends or Ctrl+C",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *PlayParams, cmd *cobra.Command, args []string) {
			common.SetupLogging(params.Verbose, false)
			title := params.Title
			if title == "" {
				title = params.ID
			}
			song := search.Result{ID: params.ID, Title: title, Duration: search.UnknownDuration}
			err := playUntilDone(func(ctx context.Context, m *session.Manager) error {
				return m.SelectAndPlay(ctx, song)
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "music play: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

type RandomParams struct {
	Verbose bool `optional:"true" help:"Debug logging"`
}

func randomCmd() *cobra.Command {
	return boa.CmdT[RandomParams]{
		Use:         "random",
		Short:       "Play a random pick from the surprise list",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *RandomParams, cmd *cobra.Command, args []string) {
			common.SetupLogging(params.Verbose, false)
			err := playUntilDone(func(ctx context.Context, m *session.Manager) error {
				return m.PlayRandomSong(ctx)
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "music random: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// playUntilDone starts playback in a fresh session and blocks until the
// song ends or the user interrupts.
func playUntilDone(start func(ctx context.Context, m *session.Manager) error) error {
	env, err := app.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := env.NewSession(nil)
	defer m.Close()

	ended := make(chan struct{}, 1)
	unsubscribe := m.Subscribe(endWatcher(ended))
	defer unsubscribe()

	if err := start(ctx, m); err != nil {
		return err
	}
	if song := m.State().CurrentSong; song != nil {
		fmt.Printf("▶ %s (%s)\n", song.Title, song.ID)
	}

	select {
	case <-ctx.Done():
	case <-ended:
	}
	return nil
}

// endWatcher signals once a song that was playing has stopped on its own.
func endWatcher(ended chan<- struct{}) func(session.State) {
	var started atomic.Bool
	return func(s session.State) {
		switch {
		case s.IsPlaying:
			started.Store(true)
		case started.Load() && !s.IsSearching:
			select {
			case ended <- struct{}{}:
			default:
			}
		}
	}
}
