package table

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/agents/tui/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineWidths(rendered string) []int {
	var widths []int
	for _, line := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
		widths = append(widths, lipgloss.Width(line))
	}
	return widths
}

func TestSimpleTableAlignsStyledCells(t *testing.T) {
	th := theme.DefaultTheme
	rendered := SimpleTable(
		[]string{"SESSION", "STATUS"},
		[][]string{
			{th.Muted.Render("(pending)"), theme.RenderStatus("running", "running")},
			{"0199a213-81c0-7800-8aa1-bbab2a035a53", theme.RenderStatus("completed", "completed")},
		},
	)

	assert.Contains(t, rendered, "SESSION")
	assert.Contains(t, rendered, "(pending)")
	assert.Contains(t, rendered, "completed")

	widths := lineWidths(rendered)
	require.NotEmpty(t, widths)
	for i, w := range widths {
		assert.Equal(t, widths[0], w, "line %d has a different display width", i)
	}
}

func TestBuilderWithoutBorder(t *testing.T) {
	rendered := NewBuilder().
		WithBorder(false).
		WithMutedColumns(1).
		WithHeaders("AGENT", "EXECUTOR").
		WithRows([]string{"reviewer", "codex"}, []string{"implementor-with-a-long-name", "claude"}).
		String()

	assert.NotContains(t, rendered, "╭")
	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	require.Len(t, lines, 3)

	col := strings.Index(lines[0], "EXECUTOR")
	require.Positive(t, col)
	widths := lineWidths(rendered)
	for i, w := range widths {
		assert.Equal(t, widths[0], w, "line %d has a different display width", i)
	}
}

func TestBuilderWithTheme(t *testing.T) {
	custom := *theme.DefaultTheme
	custom.TableHeader = lipgloss.NewStyle()
	rendered := NewBuilder().WithTheme(&custom).WithHeaders("NAME").WithRows([]string{"x"}).String()
	assert.Contains(t, rendered, "NAME")
	assert.Contains(t, rendered, "╭")
}
