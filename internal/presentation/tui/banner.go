package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the chat banner naming the script being run.
func PrintBanner(w io.Writer, scriptID string) {
	p := termenv.EnvColorProfile()
	title := termenv.String(" convo ").Bold().Foreground(p.Color("#1e1b4b")).Background(p.Color("#a78bfa"))
	subtitle := termenv.String(scriptID).Foreground(p.Color("#c084fc"))
	hint := termenv.String("type 'exit' to leave").Faint()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", title, subtitle)
	fmt.Fprintln(w, hint)
	fmt.Fprintln(w)
}
