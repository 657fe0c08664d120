// Package table holds the display-width helpers shared by the aegis tables
// and terminal widgets.
package table

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
)

// TruncateWithEllipsis cuts s to maxWidth terminal cells, ending with "…"
// when anything was dropped. Wide characters count double.
func TruncateWithEllipsis(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}

	result := make([]rune, 0, len(s))
	width := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if width+rw > maxWidth-1 {
			break
		}
		result = append(result, r)
		width += rw
	}
	return string(result) + "…"
}

// PadRight pads s with spaces to width cells, truncating when it is wider.
func PadRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := runewidth.StringWidth(s)
	if w >= width {
		return TruncateWithEllipsis(s, width)
	}
	return s + strings.Repeat(" ", width-w)
}

// New returns a light-style table writer.
func New() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	return t
}
