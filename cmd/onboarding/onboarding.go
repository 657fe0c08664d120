// Package onboarding shows the loading banner once per terminal session and
// a fun fact that never repeats twice in a row.
package onboarding

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/charmbracelet/lipgloss"
	"github.com/gigurra/aegis/cmd/common"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
)

type Params struct {
	Reset bool `optional:"true" help:"Forget the banner and fact history"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "fact",
		Short:       "Show a fun fact about aegis",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			path := FlagsPath()
			if params.Reset {
				if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
					fmt.Fprintf(os.Stderr, "fact: %v\n", err)
					os.Exit(1)
				}
				fmt.Println("Onboarding reset")
				return
			}
			o := &Onboarding{
				Path:    path,
				Session: SessionKey(),
				Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
			}
			if err := o.Show(os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "fact: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// Flags is the on-disk onboarding state.
type Flags struct {
	// BannerSession is the terminal session that last saw the banner.
	BannerSession string `json:"banner_session,omitempty"`
	LastFact      int    `json:"last_fact"`
}

// FlagsPath returns ~/.aegis/onboarding.json.
func FlagsPath() string {
	return filepath.Join(common.AppDir(), "onboarding.json")
}

func LoadFlags(path string) (Flags, error) {
	flags := Flags{LastFact: -1}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return flags, nil
	}
	if err != nil {
		return flags, err
	}
	if err := json.Unmarshal(data, &flags); err != nil {
		return Flags{LastFact: -1}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return flags, nil
}

func SaveFlags(path string, flags Flags) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(flags, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SessionKey identifies the terminal session by the parent process (the
// shell) and its start time, so a reused pid counts as a new session.
func SessionKey() string {
	ppid := os.Getppid()
	p, err := process.NewProcess(int32(ppid))
	if err != nil {
		slog.Debug("parent process lookup failed", "ppid", ppid, "error", err)
		return fmt.Sprintf("%d", ppid)
	}
	created, err := p.CreateTime()
	if err != nil {
		return fmt.Sprintf("%d", ppid)
	}
	return fmt.Sprintf("%d-%d", ppid, created)
}

// PickFact draws a fact index different from last whenever there is a choice.
func PickFact(r *rand.Rand, n, last int) int {
	if n <= 1 {
		return 0
	}
	i := r.Intn(n - 1)
	if last >= 0 && last < n && i >= last {
		i++
	}
	return i
}

type Onboarding struct {
	Path    string
	Session string
	Rand    *rand.Rand
	Facts   []string
}

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("222")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("88")).Padding(0, 2)
	factStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// Show prints the banner on the first run in this session, then a fact.
// A corrupt flags file is replaced.
func (o *Onboarding) Show(out io.Writer) error {
	facts := o.Facts
	if len(facts) == 0 {
		facts = Facts
	}

	flags, err := LoadFlags(o.Path)
	if err != nil {
		slog.Warn("resetting onboarding flags", "error", err)
	}

	if flags.BannerSession != o.Session {
		fmt.Fprintln(out, Banner())
		flags.BannerSession = o.Session
	}

	i := PickFact(o.Rand, len(facts), flags.LastFact)
	flags.LastFact = i
	fmt.Fprintln(out, factStyle.Render(facts[i]))

	return SaveFlags(o.Path, flags)
}

func Banner() string {
	bar := strings.Repeat("█", 30)
	return bannerStyle.Render("AEGIS MUN\n" + bar + " 100%")
}
