package cmd

import (
	"fmt"
	"sort"

	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/pkg/supervisor"
	"github.com/grovetools/agents/tui/theme"
	"github.com/spf13/cobra"
)

// NewStopCmd creates the `stop` command.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <sessionId>",
		Short: "Stop a running session",
		Long: `Send SIGTERM to the session's runner and executor processes and mark the
session stopped. Stopping a session that is not running is not an error.

Examples:
  agents stop 0199a213-81c0-7800-8aa1-bbab2a035a53`,
		RunE: runStopE,
	}
}

func runStopE(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || args[0] == "" {
		return errors.MissingArgument("sessionId", "agents stop <sessionId>")
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return a.stop(args[0], supervisor.SystemProcessControl())
}

func (a *app) stop(sessionID string, ctl supervisor.ProcessControl) error {
	doc := a.store.Load()
	resolved, err := a.resolver().Resolve(doc, sessionID)
	if err != nil {
		return err
	}
	result, err := supervisor.Stop(a.store, doc, resolved.Key, ctl, a.now())
	if err != nil {
		return err
	}

	if a.opts.JSONOutput {
		failures := make(map[string]string, len(result.Failures))
		for pid, ferr := range result.Failures {
			failures[fmt.Sprint(pid)] = ferr.Error()
		}
		return printJSON(a, map[string]interface{}{
			"key":             result.Key,
			"sessionId":       result.SessionID,
			"noActiveProcess": result.NoActiveProcess,
			"signalled":       result.Signalled,
			"failures":        failures,
		})
	}

	th := theme.DefaultTheme
	if result.NoActiveProcess {
		fmt.Fprintf(a.out, "No active process for session %s\n", sessionID)
		return nil
	}
	pids := make([]int, 0, len(result.Failures))
	for pid := range result.Failures {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	for _, pid := range pids {
		fmt.Fprintf(a.errOut, "%s failed to signal pid %d: %v\n", th.Warning.Render("⚠️"), pid, result.Failures[pid])
	}
	fmt.Fprintf(a.out, "%s stopped session %s (signalled %v)\n", th.Success.Render("■"), sessionID, result.Signalled)
	return nil
}
