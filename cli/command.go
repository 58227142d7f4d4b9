package cli

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/grovetools/agents/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds the options shared by every agents command.
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a command carrying the standard flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Extra agents config file merged over the project layers")

	SetStyledHelp(cmd)

	return cmd
}

// GetLogger returns the component logger, raised to debug with --verbose and
// emitting JSON with --json.
func GetLogger(cmd *cobra.Command, component string) *logrus.Entry {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logging.SetLevel(logrus.DebugLevel)
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		logging.SetFormat(logging.FormatJSON)
	}
	return logging.NewLogger(component)
}

// GetOptions extracts common options from a command.
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// ExitError ends a command with Code after its outcome has already been
// reported to the user.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs root and reports a failure through the error handler. It
// returns the process exit code.
func Execute(root *cobra.Command, stderr io.Writer) int {
	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	if cmd == nil {
		cmd = root
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	NewErrorHandler(stderr, verbose).Handle(cmd, err)
	return 1
}
