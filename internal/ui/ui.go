// Package ui provides formatted output utilities for the CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/d2verb/gpioctl/internal/protocol"
)

// Printer renders all user-facing output. It is built once at startup with
// color either on or off and passed to everything that prints.
type Printer struct {
	out io.Writer

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	blue   *color.Color
	title  *color.Color
	dim    *color.Color
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, colorEnabled bool) *Printer {
	p := &Printer{
		out:    w,
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		blue:   color.New(color.FgBlue),
		title:  color.New(color.FgYellow, color.Bold),
		dim:    color.New(color.Faint), // Dimmed text (more readable than gray)
	}
	for _, c := range []*color.Color{p.green, p.red, p.yellow, p.blue, p.title, p.dim} {
		if colorEnabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// DetectColor reports whether f is an interactive terminal that should get
// colored output. A non-empty NO_COLOR disables color regardless.
func DetectColor(f *os.File) bool {
	if noColor() {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// noColor follows the NO_COLOR convention: set and non-empty.
func noColor() bool {
	return os.Getenv("NO_COLOR") != ""
}

// Raw prints text as-is followed by a newline. Used where output may be piped.
func (p *Printer) Raw(text string) {
	fmt.Fprintln(p.out, text)
}

// Response prints a daemon reply. Error replies are shown in red.
func (p *Printer) Response(reply string) {
	c := p.green
	if protocol.ClassifyReply(reply) == protocol.ReplyError {
		c = p.red
	}
	fmt.Fprintln(p.out, c.Sprintf("Response: %s", reply))
}

// Failure prints an error message with red X.
func (p *Printer) Failure(message string) {
	fmt.Fprintf(p.out, "%s %s\n", p.red.Sprint("✗"), p.red.Sprint(message))
}

// Warning prints a warning message with yellow exclamation.
func (p *Printer) Warning(message string) {
	fmt.Fprintf(p.out, "%s %s\n", p.yellow.Sprint("⚠"), message)
}

// Info prints an info message with blue dot.
func (p *Printer) Info(message string) {
	fmt.Fprintf(p.out, "%s %s\n", p.blue.Sprint("•"), message)
}

// Success prints a success message with green checkmark.
func (p *Printer) Success(message string) {
	fmt.Fprintf(p.out, "%s %s\n", p.green.Sprint("✓"), message)
}

// Banner prints a section title.
func (p *Printer) Banner(title string) {
	fmt.Fprintln(p.out, p.title.Sprintf("===== %s =====", title))
}

// Step prints the header of one auto-sequence step.
func (p *Printer) Step(n int, description string) {
	fmt.Fprintf(p.out, "%s %s\n", p.blue.Sprintf("Step %d:", n), description)
}

// Prompt prints the REPL prompt without a trailing newline.
func (p *Printer) Prompt(prompt string) {
	fmt.Fprint(p.out, prompt)
}

// HelpEntry is one line of the REPL command list.
type HelpEntry struct {
	Name        string
	Description string
}

// Help prints the list of available commands.
func (p *Printer) Help(entries []HelpEntry) {
	fmt.Fprintln(p.out, "Available commands:")
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Name))
	}
	for _, e := range entries {
		fmt.Fprintf(p.out, "  %-*s  %s\n", width, e.Name, p.dim.Sprint(e.Description))
	}
	fmt.Fprintln(p.out)
}
