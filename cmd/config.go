package cmd

import (
	"fmt"
	"strings"

	"github.com/grovetools/agents/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the `config` command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the agents configuration",
	}
	cmd.AddCommand(newConfigLayersCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	return cmd
}

func newConfigLayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layers",
		Short: "Display every configuration layer and the merged result",
		Long: `Shows how the final configuration is built by merging layers:
1. Built-in defaults
2. Global config (<config dir>/grove/agents.yml)
3. Project config (.grove/agents.yml, .yaml or .toml)
4. Override files (.grove/agents.override.yml)
5. The file given with --config
This is useful for debugging configuration issues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return a.printLayers()
		},
	}
}

func (a *app) printLayers() error {
	if a.opts.JSONOutput {
		type layer struct {
			Source config.ConfigSource    `json:"source"`
			Path   string                 `json:"path,omitempty"`
			Data   map[string]interface{} `json:"data"`
		}
		out := struct {
			Layers []layer                `json:"layers"`
			Final  map[string]interface{} `json:"final"`
		}{Final: a.cfg.Raw()}
		for _, l := range a.layered.Layers {
			out.Layers = append(out.Layers, layer{Source: l.Source, Path: l.Path, Data: l.Data})
		}
		return printJSON(a, out)
	}

	printLayer := func(title, path string, data map[string]interface{}) error {
		fmt.Fprintf(a.out, "--- # %s\n", title)
		if path != "" {
			fmt.Fprintf(a.out, "# Source: %s\n", path)
		}
		encoded, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode %s layer: %w", title, err)
		}
		fmt.Fprintln(a.out, string(encoded))
		return nil
	}
	for _, l := range a.layered.Layers {
		if err := printLayer(fmt.Sprintf("%s CONFIG", strings.ToUpper(string(l.Source))), l.Path, l.Data); err != nil {
			return err
		}
	}
	return printLayer("FINAL MERGED CONFIG", "", a.cfg.Raw())
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return nil
		},
	}
}
