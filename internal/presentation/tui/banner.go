package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the lantern banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  _             _", "#fbbf24"},
		{" | |__ _ _ _ | |_ ___ _ _ _ _", "#f59e0b"},
		{" | / _` | ' \\|  _/ -_) '_| ' \\", "#f97316"},
		{" |_\\__,_|_||_|\\__\\___|_| |_||_|", "#ea580c"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Styler colours CLI traces. It degrades to plain text when the output is not a terminal.
type Styler struct {
	profile termenv.Profile
}

// NewStyler creates a Styler for the colour profile of w.
func NewStyler(w io.Writer) Styler {
	return Styler{profile: termenv.NewOutput(w).Profile}
}

// State styles a state name.
func (s Styler) State(name string) string {
	return s.profile.String(name).Foreground(s.profile.Color("#818cf8")).Bold().String()
}

// Error styles an error message.
func (s Styler) Error(msg string) string {
	return s.profile.String(msg).Foreground(s.profile.Color("#f87171")).String()
}

// Faint styles secondary information.
func (s Styler) Faint(msg string) string {
	return s.profile.String(msg).Faint().String()
}
