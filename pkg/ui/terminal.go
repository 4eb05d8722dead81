// Package ui prints run status for people at a terminal: colored messages,
// a per-target progress line, the end-of-run summary table and
// notifications.
package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ASCII logo for the application
const ASCIILogo = `
  ┌─┐┌─┐┌─┐┌─┐┬  ┌─┐  ┌─┐┌─┐┬─┐┌─┐┌─┐┌─┐┬─┐
  ├─┘├┤ │ │├─┘│  ├┤   └─┐│  ├┬┘├─┤├─┘├┤ ├┬┘
  ┴  └─┘└─┘┴  ┴─┘└─┘  └─┘└─┘┴└─┴ ┴┴  └─┘┴└─
`

var (
	out          io.Writer = os.Stdout
	colorEnabled           = term.IsTerminal(int(os.Stdout.Fd()))
)

// SetOutput redirects package output. Colors are disabled unless w is a terminal.
func SetOutput(w io.Writer) {
	out = w
	colorEnabled = false
	if f, ok := w.(*os.File); ok {
		colorEnabled = term.IsTerminal(int(f.Fd()))
	}
}

// Output returns the writer package output goes to.
func Output() io.Writer {
	return out
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
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(out, Cyan(ASCIILogo))
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

// PrintInfo prints an info message in cyan
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
