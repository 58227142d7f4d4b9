package cmd

import (
	"github.com/grovetools/agents/cli"
	"github.com/grovetools/agents/tui/theme"
	"github.com/grovetools/agents/version"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the agents command tree.
func NewRootCmd() *cobra.Command {
	theme.Initialize()

	root := cli.NewStandardCommand(
		"agents",
		"Run, resume, stop and inspect coding-agent sessions",
	)
	cli.SetVersionTemplate(root, version.GetInfo())

	root.AddCommand(NewRunCmd())
	root.AddCommand(NewResumeCmd())
	root.AddCommand(NewStopCmd())
	root.AddCommand(NewViewCmd())
	root.AddCommand(NewListCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewPathsCmd())
	root.AddCommand(cli.NewVersionCommand("agents"))
	return root
}
