package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	symCheck = "✔"
	symCross = "✖"
)

// Stdout and Stderr are swapped in tests.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// SetColor forces colour off (or back to what the terminal supports).
// NO_COLOR in the environment always wins.
func SetColor(enabled bool) {
	if !enabled || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
}

func OK(msg string) { fmt.Fprintln(Stdout, current.Success.Render(symCheck+" "+msg)) }

func Fail(msg string) { fmt.Fprintln(Stderr, current.Error.Render(symCross+" "+msg)) }

// Hint prints a muted follow-up line on stderr.
func Hint(msg string) { fmt.Fprintln(Stderr, current.Muted.Render(msg)) }
