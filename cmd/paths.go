package cmd

import (
	"github.com/grovetools/agents/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput is the resolved state layout plus the global directories.
type PathsOutput struct {
	paths.Layout
	ConfigDir        string `json:"config_dir"`
	StateDir         string `json:"state_dir"`
	GlobalConfigFile string `json:"global_config_file"`
}

// NewPathsCmd creates the `paths` command.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the resolved state layout",
		Long: `Print where sessions, logs and agent definitions live for the current
workspace, plus the global configuration and state directories.

The output is JSON so scripts can read it:
- sessions_file: the session store
- logs_dir: raw executor logs, one per run
- background_dir: runner output and agent instruction files
- agents_dir: agent definitions (<agent>.md)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return printJSON(a, a.pathsOutput())
		},
	}
}

func (a *app) pathsOutput() PathsOutput {
	return PathsOutput{
		Layout:           a.layout,
		ConfigDir:        paths.ConfigDir(),
		StateDir:         paths.StateDir(),
		GlobalConfigFile: paths.GlobalConfigFile(),
	}
}
