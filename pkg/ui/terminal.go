// Package ui provides the coloured terminal output and per-category
// progress line of the scraper CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"golang.org/x/term"
	"inatscraper/pkg/config"
)

// Banner printed at the top of a scrape
const Banner = `
  ┌─────────────────────────────────────────┐
  │  inatscraper · species image harvester  │
  └─────────────────────────────────────────┘
`

var (
	colorEnabled atomic.Bool
	out          io.Writer = os.Stdout
)

func init() {
	colorEnabled.Store(IsTerminal(os.Stdout))
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
// while colour output is enabled
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled.Load() {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Configure applies UI settings. Colour stays off when stdout is not a TTY.
func Configure(cfg *config.UIConfig) {
	SetColorEnabled(cfg.ColorEnabled && IsTerminal(os.Stdout))
}

// SetColorEnabled toggles ANSI colour output
func SetColorEnabled(enabled bool) {
	colorEnabled.Store(enabled)
}

// SetOutput redirects the Print helpers, mainly for tests
func SetOutput(w io.Writer) {
	out = w
}

// Output returns the writer used by the Print helpers
func Output() io.Writer {
	return out
}

// PrintBanner prints the banner with color
func PrintBanner() {
	fmt.Fprint(out, Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(out, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(out, Magenta(msg))
}
