package supervisor

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/tui/theme"
)

// RenderSummary prints the completion summary of an interactive run.
func RenderSummary(w io.Writer, o *Outcome) {
	t := theme.DefaultTheme

	var headline string
	switch o.Status {
	case models.StatusCompleted:
		headline = t.Success.Render("✓ Agent completed")
	case models.StatusStopped:
		headline = t.Warning.Render("■ Agent stopped")
	default:
		headline = t.Error.Render("✗ Agent failed")
	}

	lines := []string{headline}
	field := func(key, value string) {
		lines = append(lines, fmt.Sprintf("%s %s", t.Muted.Render(key+":"), value))
	}

	field("elapsed", formatElapsed(o.Elapsed))
	switch {
	case o.Signal != "":
		field("signal", o.Signal)
	case o.ExitCode != nil:
		field("exit code", fmt.Sprintf("%d", *o.ExitCode))
	}
	if o.SessionID != "" {
		field("session", t.Code.Render(o.SessionID))
	}
	if o.LogFile != "" {
		field("log", o.LogFile)
	}
	if o.Err != nil {
		field("error", t.Error.Render(o.Err.Error()))
	}
	for _, note := range o.Notes {
		lines = append(lines, t.Muted.Render("• "+note))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, t.Box.Render(strings.Join(lines, "\n")))
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}
