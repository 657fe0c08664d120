// Package notify delivers user-facing notices such as "no songs found".
// Internal failures are logged; only what the user must act on ends up here.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/gen2brain/beeep"
)

// Notifier shows a notice to the user.
type Notifier interface {
	Notice(title, message string)
}

// Func adapts a plain function to Notifier. Terminal UIs use it to route
// notices into their own status line.
type Func func(title, message string)

func (f Func) Notice(title, message string) {
	f(title, message)
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// Stderr prints notices to a writer, stderr when W is nil.
type Stderr struct {
	W io.Writer
}

func (s Stderr) Notice(title, message string) {
	w := s.W
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(title+":"), messageStyle.Render(message))
}

// desktopNotify is swapped out in tests.
var desktopNotify = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Desktop sends OS notifications and falls back when the platform refuses.
type Desktop struct {
	Fallback Notifier
}

func (d Desktop) Notice(title, message string) {
	if err := desktopNotify(title, message); err != nil {
		slog.Debug("desktop notification failed, using fallback", "error", err)
		if d.Fallback != nil {
			d.Fallback.Notice(title, message)
		}
	}
}

// New returns the notifier for the given preference.
func New(desktop bool) Notifier {
	if desktop {
		return Desktop{Fallback: Stderr{}}
	}
	return Stderr{}
}
