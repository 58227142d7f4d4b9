// Package table renders the static, themed tables of the listing commands.
package table

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/grovetools/agents/tui/theme"
)

// Builder assembles a lipgloss table styled with a theme.
type Builder struct {
	table    *ltable.Table
	theme    *theme.Theme
	bordered bool
	muted    map[int]bool
}

// NewBuilder starts a bordered table using the default theme.
func NewBuilder() *Builder {
	return &Builder{
		table:    ltable.New(),
		theme:    theme.DefaultTheme,
		bordered: true,
		muted:    make(map[int]bool),
	}
}

func (b *Builder) WithTheme(t *theme.Theme) *Builder {
	b.theme = t
	return b
}

func (b *Builder) WithBorder(bordered bool) *Builder {
	b.bordered = bordered
	return b
}

func (b *Builder) WithHeaders(headers ...string) *Builder {
	b.table = b.table.Headers(headers...)
	return b
}

func (b *Builder) WithRows(rows ...[]string) *Builder {
	for _, row := range rows {
		b.table = b.table.Row(row...)
	}
	return b
}

// WithMutedColumns renders the given data columns in the muted color.
func (b *Builder) WithMutedColumns(cols ...int) *Builder {
	for _, col := range cols {
		b.muted[col] = true
	}
	return b
}

// Build applies borders and cell styles and returns the table.
func (b *Builder) Build() *ltable.Table {
	th := b.theme
	if b.bordered {
		b.table = b.table.
			Border(lipgloss.RoundedBorder()).
			BorderStyle(th.TableBorder)
	} else {
		b.table = b.table.
			Border(lipgloss.HiddenBorder()).
			BorderTop(false).
			BorderBottom(false).
			BorderLeft(false).
			BorderRight(false).
			BorderHeader(false).
			BorderColumn(false)
	}
	muted := b.muted
	b.table = b.table.StyleFunc(func(row, col int) lipgloss.Style {
		if row == ltable.HeaderRow {
			return th.TableHeader
		}
		if muted[col] {
			return th.TableRow.Foreground(th.Colors.MutedText)
		}
		return th.TableRow
	})
	return b.table
}

// String renders the table.
func (b *Builder) String() string {
	return b.Build().String()
}

// SimpleTable renders a bordered table with headers and rows.
func SimpleTable(headers []string, rows [][]string) string {
	return NewBuilder().WithHeaders(headers...).WithRows(rows...).String()
}
