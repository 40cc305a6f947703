// Package output provides terminal rendering helpers for the CLI.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Styles holds the lipgloss styles used across commands.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
	Header  lipgloss.Style
	Prompt  lipgloss.Style
}

func newStyles(colored bool) *Styles {
	if !colored {
		plain := lipgloss.NewStyle()
		return &Styles{
			Error:   plain,
			Warning: plain,
			Success: plain,
			Muted:   plain,
			Header:  plain,
			Prompt:  plain,
		}
	}
	return &Styles{
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Header:  lipgloss.NewStyle().Bold(true),
		Prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
	}
}

// Renderer writes styled output to stdout/stderr, degrading to plain text
// when the destination is not a color terminal.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	styles *Styles
}

// NewRenderer creates a renderer for the given writers. Color is enabled
// only when stdout is a terminal with a color profile.
func NewRenderer(out, errOut io.Writer) *Renderer {
	colored := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		colored = termenv.NewOutput(f).Profile != termenv.Ascii
	}
	return &Renderer{out: out, errOut: errOut, styles: newStyles(colored)}
}

// Styles returns the active style set.
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Writer returns the stdout writer.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// ErrWriter returns the stderr writer.
func (r *Renderer) ErrWriter() io.Writer {
	return r.errOut
}

// Printf writes formatted output to stdout.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Println writes a line to stdout.
func (r *Renderer) Println(args ...any) {
	_, _ = fmt.Fprintln(r.out, args...)
}

// Errorf writes a styled error line to stderr.
func (r *Renderer) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render(msg))
}

// Successf writes a styled success line to stdout.
func (r *Renderer) Successf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(r.out, r.styles.Success.Render(msg))
}

// Mutedf writes a styled muted line to stdout.
func (r *Renderer) Mutedf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(r.out, r.styles.Muted.Render(msg))
}
