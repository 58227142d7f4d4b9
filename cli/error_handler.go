package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/agents/errors"
	"github.com/spf13/cobra"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Out     io.Writer
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(out io.Writer, verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Out:     out,
		Verbose: verbose,
	}
}

func detail(err error, key string) interface{} {
	for err != nil {
		if agentErr, ok := err.(*errors.AgentError); ok {
			return agentErr.Details[key]
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = unwrapper.Unwrap()
	}
	return nil
}

// Handle prints guidance for err based on its code and returns it.
func (h *ErrorHandler) Handle(cmd *cobra.Command, err error) error {
	w := h.Out
	switch errors.GetCode(err) {
	case errors.ErrCodeUsage:
		fmt.Fprintf(w, "❌ %v\n", err)
		if usage := detail(err, "usage"); usage != nil {
			fmt.Fprintf(w, "Usage: %s\n", usage)
		} else if cmd != nil {
			fmt.Fprintf(w, "Run '%s --help' for usage.\n", cmd.CommandPath())
		}

	case errors.ErrCodeAgentNotFound:
		fmt.Fprintf(w, "❌ %v\n", err)
		fmt.Fprintf(w, "Run 'agents list agents' to see available agents.\n")

	case errors.ErrCodeSessionNotFound:
		fmt.Fprintf(w, "❌ %v\n", err)
		fmt.Fprintf(w, "Run 'agents list sessions' to see tracked sessions.\n")

	case errors.ErrCodeSessionUntracked:
		fmt.Fprintf(w, "❌ %v\n", err)
		if path := detail(err, "path"); path != nil {
			fmt.Fprintf(w, "Session file: %s\n", path)
		}
		fmt.Fprintf(w, "The executor still has it, but this workspace lost its record. Resume it with the executor directly.\n")

	case errors.ErrCodeSessionNotReady:
		fmt.Fprintf(w, "❌ %v\n", err)
		fmt.Fprintf(w, "Wait for the session id to be captured, then check 'agents list sessions'.\n")

	case errors.ErrCodeConfigNotFound, errors.ErrCodeConfigInvalid:
		fmt.Fprintf(w, "❌ %v\n", err)
		if path := detail(err, "path"); path != nil {
			fmt.Fprintf(w, "Check %s. 'agents config schema' prints the expected shape.\n", path)
		}

	case errors.ErrCodeExecutionModeNotFound, errors.ErrCodeExecutorNotFound:
		fmt.Fprintf(w, "❌ %v\n", err)
		fmt.Fprintf(w, "Run 'agents config layers' to see where modes and executors are configured.\n")

	case errors.ErrCodeSpawnFailed:
		fmt.Fprintf(w, "❌ %v\n", err)
		fmt.Fprintf(w, "Make sure the executor binary is installed and on your PATH.\n")

	default:
		fmt.Fprintf(w, "❌ Error: %v\n", err)
	}

	if h.Verbose {
		if agentErr, ok := err.(*errors.AgentError); ok {
			fmt.Fprintf(w, "\nError details:\n%s\n", agentErr.ToJSON())
		}
	}
	return err
}
