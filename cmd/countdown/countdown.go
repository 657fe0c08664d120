package countdown

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/charmbracelet/lipgloss"
	"github.com/gigurra/aegis/cmd/common"
	"github.com/gigurra/aegis/cmd/common/config"
	"github.com/spf13/cobra"
)

type Params struct {
	Live bool `short:"l" optional:"true" help:"Keep counting down until Ctrl+C"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "countdown",
		Short:       "Time left until the conference starts",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := run(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "countdown: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

var (
	numberStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	doneStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
)

// Remaining is the time left split into display units.
type Remaining struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// Until splits the time from now to start. Past starts give all zeros.
func Until(now, start time.Time) Remaining {
	d := start.Sub(now)
	if d <= 0 {
		return Remaining{}
	}
	total := int(d / time.Second)
	return Remaining{
		Days:    total / 86400,
		Hours:   total % 86400 / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}
}

func (r Remaining) Zero() bool {
	return r == Remaining{}
}

func (r Remaining) String() string {
	return fmt.Sprintf("%dd %02dh %02dm %02ds", r.Days, r.Hours, r.Minutes, r.Seconds)
}

func line(name string, r Remaining) string {
	if r.Zero() {
		return doneStyle.Render(name + " has started!")
	}
	return name + " starts in " + numberStyle.Render(r.String())
}

func run(params *Params, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	conf := cfg.Conference

	r := Until(time.Now(), conf.Start)
	if !params.Live || r.Zero() {
		fmt.Fprintln(out, line(conf.Name, r))
		return nil
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		fmt.Fprintf(out, "\r%s\033[K", line(conf.Name, r))
		if r.Zero() {
			fmt.Fprintln(out)
			return nil
		}
		select {
		case <-sigChan:
			fmt.Fprintln(out)
			return nil
		case now := <-ticker.C:
			r = Until(now, conf.Start)
		}
	}
}
