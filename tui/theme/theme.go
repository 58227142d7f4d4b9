// Package theme holds the lipgloss styles shared by every rendered surface:
// completion summaries, session listings and transcripts.
package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Colors encapsulates the palette used by a theme.
type Colors struct {
	Green     lipgloss.TerminalColor
	Yellow    lipgloss.TerminalColor
	Red       lipgloss.TerminalColor
	Cyan      lipgloss.TerminalColor
	Blue      lipgloss.TerminalColor
	Violet    lipgloss.TerminalColor
	MutedText lipgloss.TerminalColor
	Border    lipgloss.TerminalColor
}

// Theme holds all the pre-configured styles.
type Theme struct {
	Colors Colors

	Header lipgloss.Style
	Title  lipgloss.Style

	// Status indicators
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Bold   lipgloss.Style
	Muted  lipgloss.Style
	Accent lipgloss.Style
	Code   lipgloss.Style
	Box    lipgloss.Style

	// Listings
	TableHeader lipgloss.Style
	TableRow    lipgloss.Style
	TableBorder lipgloss.Style

	// Transcript roles
	Assistant lipgloss.Style
	Reasoning lipgloss.Style
	Tool      lipgloss.Style
	Action    lipgloss.Style
}

// DefaultTheme is the theme used unless a caller builds its own.
var DefaultTheme = NewTheme()

// Initialize picks the lipgloss color profile. CLICOLOR_FORCE and
// COLORTERM=truecolor force colors; NO_COLOR disables them.
func Initialize() {
	switch {
	case os.Getenv("NO_COLOR") != "":
		lipgloss.SetColorProfile(termenv.Ascii)
	case os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}

// NewTheme builds the default adaptive palette.
func NewTheme() *Theme {
	colors := Colors{
		Green:     lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#98bb6c"},
		Yellow:    lipgloss.AdaptiveColor{Light: "#b7791f", Dark: "#e6c384"},
		Red:       lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#e46876"},
		Cyan:      lipgloss.AdaptiveColor{Light: "#00838f", Dark: "#7fb4ca"},
		Blue:      lipgloss.AdaptiveColor{Light: "#1565c0", Dark: "#7e9cd8"},
		Violet:    lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#957fb8"},
		MutedText: lipgloss.AdaptiveColor{Light: "#757575", Dark: "#727169"},
		Border:    lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#54546d"},
	}

	return &Theme{
		Colors: colors,

		Header: lipgloss.NewStyle().Bold(true).MarginBottom(1),
		Title:  lipgloss.NewStyle().Bold(true).Underline(true),

		Success: lipgloss.NewStyle().Foreground(colors.Green).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(colors.Red).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(colors.Yellow).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(colors.Blue),

		Bold:   lipgloss.NewStyle().Bold(true),
		Muted:  lipgloss.NewStyle().Foreground(colors.MutedText),
		Accent: lipgloss.NewStyle().Foreground(colors.Violet),
		Code:   lipgloss.NewStyle().Foreground(colors.Cyan),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Border).
			Padding(0, 1),

		TableHeader: lipgloss.NewStyle().Bold(true).Foreground(colors.Blue).Padding(0, 1),
		TableRow:    lipgloss.NewStyle().Padding(0, 1),
		TableBorder: lipgloss.NewStyle().Foreground(colors.Border),

		Assistant: lipgloss.NewStyle().Foreground(colors.Green).Bold(true),
		Reasoning: lipgloss.NewStyle().Foreground(colors.MutedText).Italic(true),
		Tool:      lipgloss.NewStyle().Foreground(colors.Cyan).Bold(true),
		Action:    lipgloss.NewStyle().Foreground(colors.Yellow).Bold(true),
	}
}

// RenderStatus renders text with the style matching a session status.
// Listing statuses such as "failed (2)" are matched by their first word.
func RenderStatus(status, text string) string {
	status, _, _ = strings.Cut(status, " ")
	switch status {
	case "completed":
		return DefaultTheme.Success.Render(text)
	case "failed":
		return DefaultTheme.Error.Render(text)
	case "running", "pending-completion":
		return DefaultTheme.Info.Render(text)
	case "starting":
		return DefaultTheme.Warning.Render(text)
	default:
		return DefaultTheme.Muted.Render(text)
	}
}
