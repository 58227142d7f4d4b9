package cmd

import (
	"fmt"
	"strings"

	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/pkg/agents"
	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/pkg/process"
	"github.com/grovetools/agents/pkg/sessions"
	"github.com/grovetools/agents/util/sanitize"
	"github.com/spf13/cobra"
)

const resumeUsage = `agents resume <sessionId> "<prompt>"`

// NewResumeCmd creates the `resume` command.
func NewResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <sessionId> <prompt>",
		Short: "Continue an existing session with a new prompt",
		Long: `Continue a session by its executor session id. The session keeps its
record; the new turn writes a fresh log file.

Examples:
  agents resume 0199a213-81c0-7800-8aa1-bbab2a035a53 "Now add tests"
  agents resume 0199a213-81c0-7800-8aa1-bbab2a035a53 "Keep going" --background`,
		RunE: runResumeE,
	}
	addTargetFlags(cmd)
	return cmd
}

func runResumeE(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return errors.MissingArgument("sessionId", resumeUsage)
	}
	sessionID := strings.TrimSpace(args[0])
	prompt := strings.TrimSpace(strings.Join(args[1:], " "))
	if prompt == "" {
		return errors.MissingArgument("prompt", resumeUsage)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	doc := a.store.Load()
	resolved, err := a.resolver().Resolve(doc, sessionID)
	if err != nil {
		return err
	}
	rec := resolved.Record
	if rec.SessionID == "" {
		return errors.SessionNotReady(resolved.Key)
	}

	// The agent definition may have been removed since the session started;
	// resume then runs with configuration and mode only.
	def, err := agents.Load(a.layout.AgentsDir, rec.Agent)
	if err != nil {
		if !errors.Is(err, errors.ErrCodeAgentNotFound) {
			return err
		}
		a.log.WithField("agent", rec.Agent).Debug("Agent definition missing, resuming without it")
		def = nil
	}
	t, err := a.resolveTarget(cmd, def, fallbacks{executor: rec.Executor, mode: defaultMode(a.cfg, rec)})
	if err != nil {
		return err
	}
	command, err := t.exec.BuildResumeCommand(t.settings, rec.SessionID, prompt)
	if err != nil {
		return err
	}

	start := a.hints.StartTimeOr(a.now())
	if a.hints.Runner {
		if a.hints.LogFile != "" && a.hints.LogFile != rec.LogFile {
			if _, err := a.store.Update(resolved.Key, func(r *models.SessionRecord) {
				r.LogFile = a.hints.LogFile
			}); err != nil {
				return err
			}
		}
		return a.supervise(cmd.Context(), resolved.Key, t, command, start)
	}

	if live := process.LivePIDs(rec.TrackedPIDs()...); len(live) > 0 {
		return errors.New(errors.ErrCodeUsage,
			fmt.Sprintf("session '%s' is still running; stop it first or wait for it to finish", rec.SessionID)).
			WithDetail("usage", "agents stop "+rec.SessionID)
	}

	bg := a.wantsBackground(cmd, def)
	logFile := sessions.LogPath(a.layout.LogsDir, rec.Agent, start)
	rec.Status = models.StatusStarting
	rec.Executor = t.exec.Key()
	rec.ExecutionMode = t.modeName
	rec.Background = bg
	rec.RunnerPID = 0
	rec.ExecutorPID = 0
	rec.ExitCode = nil
	rec.Signal = ""
	rec.Error = ""
	rec.LogFile = logFile
	rec.LastUsedAt = start
	rec.LastPrompt = sanitize.Truncate(prompt, promptPrefixLength)
	if err := a.store.PersistRecord(doc, resolved.Key); err != nil {
		return fmt.Errorf("failed to save session record: %w", err)
	}

	if bg {
		return a.launch(cmd.Context(), resolved.Key, start, logFile)
	}
	return a.supervise(cmd.Context(), resolved.Key, t, command, start)
}
