package transcript

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/tui/theme"
	"golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 100

// RenderOptions controls Render.
type RenderOptions struct {
	Mode Mode
	// Width wraps message bodies; zero detects it from the writer.
	Width int
	// NoSummary omits the metrics block.
	NoSummary bool
}

// Width returns the terminal width of w, or DefaultWidth.
func Width(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return DefaultWidth
}

// Render writes the messages selected by opts.Mode followed by the metrics
// summary.
func Render(w io.Writer, t *Transcript, opts RenderOptions) error {
	width := opts.Width
	if width <= 0 {
		width = Width(w)
	}
	th := theme.DefaultTheme
	body := lipgloss.NewStyle().Width(width - 2).PaddingLeft(2)

	messages := Slice(t.Messages, opts.Mode)
	if len(messages) == 0 {
		if _, err := fmt.Fprintln(w, th.Muted.Render("No messages yet.")); err != nil {
			return err
		}
	}
	for i, msg := range messages {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if msg.Raw {
			if _, err := fmt.Fprintln(w, th.Muted.Render(strings.Join(msg.Body, "\n"))); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintln(w, roleStyle(msg.Role).Render(msg.Title)); err != nil {
			return err
		}
		text := strings.Join(msg.Body, "\n")
		if msg.Role == models.RoleReasoning {
			text = th.Reasoning.Render(text)
		}
		if _, err := fmt.Fprintln(w, body.Render(text)); err != nil {
			return err
		}
	}

	if opts.NoSummary {
		return nil
	}
	items := Summarize(t.Metrics)
	if len(items) == 0 {
		return nil
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s %s", th.Bold.Render(item.Label), item.Value))
	}
	_, err := fmt.Fprintln(w, "\n"+th.Box.Render(strings.Join(lines, "\n")))
	return err
}

func roleStyle(role models.Role) lipgloss.Style {
	th := theme.DefaultTheme
	switch role {
	case models.RoleAssistant:
		return th.Assistant
	case models.RoleReasoning:
		return th.Reasoning
	case models.RoleTool:
		return th.Tool
	default:
		return th.Action
	}
}
