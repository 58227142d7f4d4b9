package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/grovetools/agents/cli"
	"github.com/grovetools/agents/config"
	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/logging"
	"github.com/grovetools/agents/pkg/agents"
	"github.com/grovetools/agents/pkg/background"
	"github.com/grovetools/agents/pkg/executor"
	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/pkg/sessions"
	"github.com/grovetools/agents/pkg/supervisor"
	"github.com/grovetools/agents/tui/theme"
	"github.com/grovetools/agents/util/pathutil"
	"github.com/grovetools/agents/util/sanitize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// promptPrefixLength bounds the prompt kept on a record.
const promptPrefixLength = 200

const runUsage = `agents run <agent> "<prompt>"`

// NewRunCmd creates the `run` command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <agent> <prompt>",
		Short: "Start a new agent session",
		Long: `Start a new session of an agent. The agent definition at
<agentsDir>/<agent>.md picks the executor and execution mode; flags override it.

In the foreground the filtered executor output streams to the terminal and a
summary is printed when it exits. With --background a detached runner does the
supervision and this command returns once the session id is known.

Examples:
  agents run reviewer "Review the staged changes"
  agents run reviewer "Fix the failing test" --executor claude --mode careful
  agents run implementor "Add the endpoint" --background`,
		RunE: runRunE,
	}
	addTargetFlags(cmd)
	return cmd
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("executor", "e", "", "Executor to use: claude, codex")
	cmd.Flags().StringP("mode", "m", "", "Execution mode from the configuration")
	cmd.Flags().BoolP("background", "b", false, "Run detached and return once the session id is known")
}

// target is a fully resolved executor invocation context.
type target struct {
	exec     executor.Executor
	modeName string
	settings map[string]interface{}
}

// fallbacks carries what a resumed session already settled on.
type fallbacks struct {
	// executor wins over the agent definition; only --executor replaces it.
	executor string
	mode     string
}

// resolveTarget layers flag > fallback executor > agent definition >
// execution mode > defaults for the executor choice and merges the executor
// settings.
func (a *app) resolveTarget(cmd *cobra.Command, def *agents.Definition, fb fallbacks) (*target, error) {
	explicitExecutor, _ := cmd.Flags().GetString("executor")
	modeName, _ := cmd.Flags().GetString("mode")
	if explicitExecutor == "" {
		explicitExecutor = fb.executor
	}

	var agentOverrides map[string]interface{}
	if def != nil {
		if explicitExecutor == "" {
			explicitExecutor = def.Executor
		}
		if modeName == "" {
			modeName = def.Mode
		}
		agentOverrides = def.Overrides
	}
	if modeName == "" {
		modeName = fb.mode
	}

	resolvedMode, mode, err := a.cfg.ResolveExecutionMode(modeName)
	if err != nil {
		return nil, err
	}
	key := a.cfg.ResolveExecutor(explicitExecutor, mode)
	exec, err := a.registry.Get(key)
	if err != nil {
		return nil, err
	}
	settings, err := a.registry.ResolveSettings(key, a.cfg.ExecutorOverrides(key), mode.OverridesFor(key), agentOverrides)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{"executor": key, "mode": resolvedMode}).Debug("Resolved executor")
	return &target{exec: exec, modeName: resolvedMode, settings: settings}, nil
}

// wantsBackground decides between foreground and detached execution.
func (a *app) wantsBackground(cmd *cobra.Command, def *agents.Definition) bool {
	bg := a.cfg.Defaults.Background
	if def != nil && def.Background != nil {
		bg = *def.Background
	}
	if cmd.Flags().Changed("background") {
		bg, _ = cmd.Flags().GetBool("background")
	}
	if bg && !a.cfg.Background.Enabled {
		fmt.Fprintln(a.errOut, theme.DefaultTheme.Warning.Render("Background execution is disabled in the configuration; running in the foreground."))
		return false
	}
	return bg
}

func runRunE(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.MissingArgument("agent", runUsage)
	}
	agentName := args[0]
	prompt := strings.TrimSpace(strings.Join(args[1:], " "))
	if prompt == "" {
		return errors.MissingArgument("prompt", runUsage)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	def, err := agents.Load(a.layout.AgentsDir, agentName)
	if err != nil {
		return err
	}
	t, err := a.resolveTarget(cmd, def, fallbacks{})
	if err != nil {
		return err
	}
	instructions, err := def.WriteInstructions(a.instructionsDir())
	if err != nil {
		return fmt.Errorf("failed to write agent instructions: %w", err)
	}
	command, err := t.exec.BuildRunCommand(t.settings, instructions, prompt)
	if err != nil {
		return err
	}

	start := a.hints.StartTimeOr(a.now())
	key := sessions.RunKey(agentName, start)
	logFile := a.hints.LogFileOr(sessions.LogPath(a.layout.LogsDir, agentName, start))
	bg := a.hints.Runner || a.wantsBackground(cmd, def)

	doc := a.store.Load()
	if _, exists := doc.Get(key); !exists || !a.hints.Runner {
		doc.Put(key, &models.SessionRecord{
			Agent:         agentName,
			Executor:      t.exec.Key(),
			ExecutionMode: t.modeName,
			Status:        models.StatusStarting,
			Background:    bg,
			LogFile:       logFile,
			CreatedAt:     start,
			LastUsedAt:    start,
			LastPrompt:    sanitize.Truncate(prompt, promptPrefixLength),
		})
		if err := a.store.PersistRecord(doc, key); err != nil {
			return fmt.Errorf("failed to save session record: %w", err)
		}
	}

	if bg && !a.hints.Runner {
		return a.launch(cmd.Context(), key, start, logFile)
	}
	return a.supervise(cmd.Context(), key, t, command, start)
}

// launch hands the run to a detached runner re-invoking this binary with the
// same arguments.
func (a *app) launch(ctx context.Context, key string, start time.Time, logFile string) error {
	result, err := a.launcher().Launch(ctx, background.LaunchSpec{
		Key:       key,
		Args:      os.Args[1:],
		Dir:       a.cwd,
		StartTime: start,
		LogFile:   logFile,
		RunnerLog: a.runnerLog(key),
	})
	if err != nil {
		return err
	}

	if a.opts.JSONOutput {
		return printJSON(a, map[string]interface{}{
			"key":       result.Key,
			"sessionId": result.SessionID,
			"runnerPid": result.RunnerPID,
			"timedOut":  result.TimedOut,
			"logFile":   logFile,
		})
	}

	p := logging.NewPrettyLogger().WithWriter(a.out)
	if result.TimedOut {
		p.Headline("…", fmt.Sprintf("runner %d started, session id not yet available", result.RunnerPID))
		p.Field("Log", pathutil.Abbreviate(logFile))
		p.Command("Check", "agents list sessions")
		return nil
	}
	p.Headline("▸", fmt.Sprintf("session %s running in the background", theme.DefaultTheme.Bold.Render(result.SessionID)))
	p.Command("View", "agents view "+result.SessionID)
	p.Command("Resume", fmt.Sprintf("agents resume %s \"<prompt>\"", result.SessionID))
	p.Command("Stop", "agents stop "+result.SessionID)
	return nil
}

// supervise runs the executor in this process. A runner records its own PID
// first so stop can reach it even before the launcher's write lands.
func (a *app) supervise(ctx context.Context, key string, t *target, command executor.Command, start time.Time) error {
	if a.hints.Runner {
		pid := os.Getpid()
		if _, err := a.store.Update(key, func(r *models.SessionRecord) {
			r.RunnerPID = pid
			r.Background = true
		}); err != nil {
			return err
		}
	}
	doc := a.store.Load()
	if command.Options.Dir == "" {
		command.Options.Dir = a.cwd
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	outcome := a.supervisor().Supervise(ctx, supervisor.RunSpec{
		Doc:             doc,
		Key:             key,
		Executor:        t.exec,
		Settings:        t.settings,
		Command:         command,
		StartTime:       start,
		Interactive:     !a.hints.Runner,
		ExtractionDelay: t.exec.SessionExtractionDelay(t.settings, a.extractionFallback()),
	})

	if a.opts.JSONOutput && !a.hints.Runner {
		if err := printJSON(a, outcomeJSON(outcome)); err != nil {
			return err
		}
	}
	switch {
	case outcome.Status == models.StatusCompleted || outcome.Status == models.StatusStopped:
		return nil
	case outcome.ExitCode != nil && *outcome.ExitCode != 0:
		return &cli.ExitError{Code: *outcome.ExitCode}
	}
	return &cli.ExitError{Code: 1}
}

func outcomeJSON(o *supervisor.Outcome) map[string]interface{} {
	out := map[string]interface{}{
		"key":       o.Key,
		"sessionId": o.SessionID,
		"status":    o.Status,
		"elapsedMs": o.Elapsed.Milliseconds(),
		"logFile":   o.LogFile,
	}
	if o.ExitCode != nil {
		out["exitCode"] = *o.ExitCode
	}
	if o.Signal != "" {
		out["signal"] = o.Signal
	}
	if o.Err != nil {
		out["error"] = o.Err.Error()
	}
	if len(o.Notes) > 0 {
		out["notes"] = o.Notes
	}
	return out
}

func printJSON(a *app, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}

// defaultMode returns the mode a record was created with, or the configured
// default for records written before modes were tracked.
func defaultMode(cfg *config.Config, rec *models.SessionRecord) string {
	if rec.ExecutionMode != "" {
		return rec.ExecutionMode
	}
	return cfg.Defaults.ExecutionMode
}
