package cli

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/agents/version"
	"github.com/spf13/cobra"
)

// SetVersionTemplate sets the --version output of a root command.
func SetVersionTemplate(cmd *cobra.Command, info version.Info) {
	cmd.Version = info.Version
	cmd.SetVersionTemplate(fmt.Sprintf(`{{.Name}} {{.Version}}
  Commit:    %s
  Built:     %s
  Platform:  %s
`, info.Commit, info.BuildDate, info.Platform))
}

// NewVersionCommand creates the version subcommand.
func NewVersionCommand(componentName string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: fmt.Sprintf("Print the version number of %s", componentName),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetInfo()
			if GetOptions(cmd).JSONOutput {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n%s\n", componentName, info.Version, info.String())
			return nil
		},
	}
}
