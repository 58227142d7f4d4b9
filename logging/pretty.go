package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/agents/tui/theme"
)

// PrettyLogger prints the styled lines a person at the terminal reads, as
// opposed to the diagnostics that go through NewLogger.
type PrettyLogger struct {
	w     io.Writer
	theme *theme.Theme
}

// NewPrettyLogger writes to stderr until WithWriter says otherwise.
func NewPrettyLogger() *PrettyLogger {
	return &PrettyLogger{w: os.Stderr, theme: theme.DefaultTheme}
}

func (p *PrettyLogger) WithWriter(w io.Writer) *PrettyLogger {
	p.w = w
	return p
}

// Headline prints a bold line led by a colored marker.
func (p *PrettyLogger) Headline(marker, message string) {
	fmt.Fprintf(p.w, "%s %s\n", p.theme.Success.Render(marker), message)
}

func (p *PrettyLogger) Success(message string) {
	p.Headline("✓", message)
}

func (p *PrettyLogger) Warn(message string) {
	fmt.Fprintf(p.w, "%s %s\n", p.theme.Warning.Render("⚠"), p.theme.Warning.Render(message))
}

// Error prints message, followed by err when not nil.
func (p *PrettyLogger) Error(message string, err error) {
	line := p.theme.Error.Render("✗") + " " + p.theme.Error.Render(message)
	if err != nil {
		line += ": " + err.Error()
	}
	fmt.Fprintln(p.w, line)
}

// Field prints an indented `label: value` line.
func (p *PrettyLogger) Field(label string, value interface{}) {
	fmt.Fprintf(p.w, "  %s %v\n", p.theme.Muted.Render(label+":"), value)
}

// Command prints an indented follow-up command the user can copy.
func (p *PrettyLogger) Command(label, command string) {
	fmt.Fprintf(p.w, "  %s %s\n", p.theme.Muted.Render(fmt.Sprintf("%-7s", label+":")), p.theme.Code.Render(command))
}
