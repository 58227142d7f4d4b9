package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/agents/tui/theme"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	maxWidth = 72
	minWidth = 40
)

// helpWidth returns the terminal width clamped to [minWidth, maxWidth].
func helpWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return maxWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < minWidth || width > maxWidth {
		return maxWidth
	}
	return width
}

// wrapText wraps text to width, preserving existing line breaks.
func wrapText(text string, width int) string {
	var result []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			result = append(result, paragraph)
			continue
		}
		var line string
		for _, word := range strings.Fields(paragraph) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= width:
				line += " " + word
			default:
				result = append(result, line)
				line = word
			}
		}
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

// SetStyledHelp applies the styled help to cmd and, through cobra's
// inheritance, to its subcommands.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
}

// parseDescription splits a long description into text and an Examples block.
func parseDescription(long string) (description, examples string) {
	for _, marker := range []string{"\nExamples:\n", "\nExample:\n"} {
		if idx := strings.Index(long, marker); idx != -1 {
			return strings.TrimSpace(long[:idx]), strings.TrimSpace(long[idx+len(marker):])
		}
	}
	return long, ""
}

// styleCommandLine highlights the root command, subcommand and flags of an
// example line.
func styleCommandLine(line, rootCmd string, t *theme.Theme) string {
	sub := lipgloss.NewStyle().Foreground(t.Colors.Blue)
	flag := lipgloss.NewStyle().Foreground(t.Colors.Violet)

	parts := strings.Fields(line)
	for i, part := range parts {
		switch {
		case i == 0 && part == rootCmd:
			parts[i] = t.Code.Render(part)
		case i == 1 && !strings.HasPrefix(part, "-"):
			parts[i] = sub.Render(part)
		case strings.HasPrefix(part, "-"):
			parts[i] = flag.Render(part)
		}
	}
	return "  " + strings.Join(parts, " ")
}

func styledHelpFunc(cmd *cobra.Command, args []string) {
	w := cmd.OutOrStdout()
	t := theme.DefaultTheme
	section := lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Yellow)
	name := lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Blue)
	width := helpWidth(w) - 2

	fmt.Fprintln(w, " "+section.Render(strings.ToUpper(cmd.CommandPath())))

	description, examples := parseDescription(cmd.Long)
	if cmd.Short != "" {
		for _, line := range strings.Split(wrapText(cmd.Short, width), "\n") {
			fmt.Fprintln(w, " "+t.Muted.Render(line))
		}
	}
	if description != "" && description != cmd.Short {
		fmt.Fprintln(w)
		for _, line := range strings.Split(wrapText(description, width), "\n") {
			fmt.Fprintln(w, " "+line)
		}
	}

	if cmd.Runnable() || cmd.HasSubCommands() {
		fmt.Fprintln(w, "\n "+section.Render("USAGE"))
		if cmd.Runnable() {
			fmt.Fprintf(w, " %s\n", cmd.UseLine())
		}
		if cmd.HasSubCommands() {
			fmt.Fprintf(w, " %s [command]\n", cmd.CommandPath())
		}
	}

	if cmd.HasAvailableSubCommands() {
		maxLen := 0
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() && len(sub.Name()) > maxLen {
				maxLen = len(sub.Name())
			}
		}
		fmt.Fprintln(w, "\n "+section.Render("COMMANDS"))
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() {
				padding := strings.Repeat(" ", maxLen-len(sub.Name()))
				fmt.Fprintf(w, " %s%s  %s\n", name.Render(sub.Name()), padding, sub.Short)
			}
		}
	}

	var flags []*pflag.Flag
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			flags = append(flags, f)
		}
	})
	if len(flags) > 0 {
		fmt.Fprintln(w, "\n "+section.Render("FLAGS"))
		maxFlagLen := 0
		for _, f := range flags {
			if l := len(formatFlagName(f)); l > maxFlagLen {
				maxFlagLen = l
			}
		}
		for _, f := range flags {
			flagStr := formatFlagName(f)
			usage := f.Usage
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" && f.DefValue != "0" {
				usage += t.Muted.Render(fmt.Sprintf(" (default: %s)", f.DefValue))
			}
			fmt.Fprintf(w, " %s%s  %s\n", t.Accent.Render(flagStr), strings.Repeat(" ", maxFlagLen-len(flagStr)), usage)
		}
	}

	if cmd.Example != "" {
		examples = cmd.Example
	}
	if examples != "" {
		fmt.Fprintln(w, "\n "+section.Render("EXAMPLES"))
		rootCmd := cmd.Root().Name()
		for _, line := range strings.Split(examples, "\n") {
			trimmed := strings.TrimSpace(line)
			switch {
			case trimmed == "":
				fmt.Fprintln(w)
			case strings.HasPrefix(trimmed, "#"):
				fmt.Fprintln(w, " "+t.Muted.Render(trimmed))
			default:
				fmt.Fprintln(w, " "+styleCommandLine(trimmed, rootCmd, t))
			}
		}
	}

	if cmd.HasSubCommands() {
		fmt.Fprintf(w, "\n Use \"%s [command] --help\" for more information.\n", cmd.CommandPath())
	}
}

// formatFlagName returns "-f, --flag" or "    --flag".
func formatFlagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return fmt.Sprintf("    --%s", f.Name)
}
