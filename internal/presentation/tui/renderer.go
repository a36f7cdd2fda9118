package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a markdown renderer sized to the terminal, or nil when
// stdout is not a terminal so piped output stays plain.
func NewRenderer() func(string) (string, error) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}

	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r.Render
}
