package cmd

import (
	"fmt"
	"strings"

	"github.com/grovetools/agents/pkg/agents"
	"github.com/grovetools/agents/pkg/process"
	"github.com/grovetools/agents/pkg/sessions"
	"github.com/grovetools/agents/tui/components/table"
	"github.com/grovetools/agents/tui/theme"
	"github.com/grovetools/agents/util/sanitize"
	"github.com/spf13/cobra"
)

// NewListCmd creates the `list` command group.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions or agents",
	}
	cmd.AddCommand(newListSessionsCmd())
	cmd.AddCommand(newListAgentsCmd())
	return cmd
}

func newListSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List active and recent sessions",
		Long: `List running sessions followed by the most recent finished ones.

Examples:
  agents list sessions
  agents list sessions --limit 25 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			return a.listSessions(limit, process.IsProcessAlive)
		},
	}
	cmd.Flags().Int("limit", sessions.DefaultRecentLimit, "Number of finished sessions to show; 0 shows all")
	return cmd
}

// promptColumnWidth bounds the prompt column of the table.
const promptColumnWidth = 48

func (a *app) listSessions(limit int, alive func(pid int) bool) error {
	rows := sessions.List(a.store.Load(), alive, limit)
	if a.opts.JSONOutput {
		if rows == nil {
			rows = []sessions.Row{}
		}
		return printJSON(a, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No sessions yet. Start one with: agents run <agent> \"<prompt>\"")
		return nil
	}

	th := theme.DefaultTheme
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		id := row.SessionID
		if id == "" {
			id = th.Muted.Render("(pending)")
		}
		prompt := strings.Join(strings.Fields(row.LastPrompt), " ")
		if len([]rune(prompt)) > promptColumnWidth {
			prompt = sanitize.Truncate(prompt, promptColumnWidth-1) + "…"
		}
		cells = append(cells, []string{
			id, row.Agent, row.Executor,
			theme.RenderStatus(row.Status, row.Status),
			row.LastUsedAt.Local().Format("2006-01-02 15:04"),
			prompt,
		})
	}
	fmt.Fprintln(a.out, table.SimpleTable(
		[]string{"SESSION", "AGENT", "EXECUTOR", "STATUS", "LAST USED", "PROMPT"}, cells))
	return nil
}

func newListAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List agent definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return a.listAgents()
		},
	}
}

func (a *app) listAgents() error {
	names, err := agents.List(a.layout.AgentsDir)
	if err != nil {
		return fmt.Errorf("failed to list agents: %w", err)
	}

	type agentRow struct {
		Name        string `json:"name"`
		Executor    string `json:"executor,omitempty"`
		Mode        string `json:"mode,omitempty"`
		Description string `json:"description,omitempty"`
	}
	rows := make([]agentRow, 0, len(names))
	for _, name := range names {
		def, err := agents.Load(a.layout.AgentsDir, name)
		if err != nil {
			a.log.WithError(err).WithField("agent", name).Warn("Skipping unreadable agent definition")
			continue
		}
		rows = append(rows, agentRow{Name: name, Executor: def.Executor, Mode: def.Mode, Description: def.Description})
	}

	if a.opts.JSONOutput {
		return printJSON(a, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintf(a.out, "No agents defined in %s\n", a.layout.AgentsDir)
		return nil
	}
	th := theme.DefaultTheme
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		executor := row.Executor
		if executor == "" {
			executor = th.Muted.Render("default")
		}
		cells = append(cells, []string{th.Bold.Render(row.Name), executor, row.Description})
	}
	fmt.Fprintln(a.out, table.SimpleTable([]string{"AGENT", "EXECUTOR", "DESCRIPTION"}, cells))
	return nil
}
