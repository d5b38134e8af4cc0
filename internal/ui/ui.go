// Package ui prints operator-facing progress output. Color is decided once
// when the Printer is built (explicit flag, with fatih/color's NO_COLOR and
// non-terminal handling as the fallback) instead of through global state.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

type Printer struct {
	out  io.Writer
	ok   *color.Color
	warn *color.Color
}

// New returns a Printer writing to stdout. noColor forces plain output.
func New(noColor bool) *Printer {
	return NewWriter(os.Stdout, noColor)
}

// NewWriter is New with an explicit destination (for tests).
func NewWriter(out io.Writer, noColor bool) *Printer {
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow, color.Bold)
	if noColor {
		ok.DisableColor()
		warn.DisableColor()
	}
	return &Printer{out: out, ok: ok, warn: warn}
}

// Stepf announces a step in progress; no trailing newline so OK can finish
// the line.
func (p *Printer) Stepf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// OK finishes a step line.
func (p *Printer) OK() {
	p.ok.Fprint(p.out, "OK\n")
}

// Printf prints plain output.
func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Println prints a plain line.
func (p *Printer) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}

// Warnf prints a highlighted operator warning.
func (p *Printer) Warnf(format string, args ...any) {
	p.warn.Fprintf(p.out, format, args...)
}

// List prints one entry per line.
func (p *Printer) List(lines []string) {
	for _, line := range lines {
		fmt.Fprintln(p.out, line)
	}
}
