package errors

import (
	"fmt"
	"os/exec"
	"strings"
)

// MissingArgument creates a usage error for a required positional argument
func MissingArgument(name, usage string) *AgentError {
	return New(ErrCodeUsage, fmt.Sprintf("missing required argument <%s>", name)).
		WithDetail("argument", name).
		WithDetail("usage", usage)
}

// AgentNotFound creates an unknown agent error
func AgentNotFound(agent string) *AgentError {
	return New(ErrCodeAgentNotFound, fmt.Sprintf("agent '%s' not found", agent)).
		WithDetail("agent", agent)
}

// SessionNotFound creates an unknown session error
func SessionNotFound(id string) *AgentError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("no run found with session id '%s'", id)).
		WithDetail("sessionId", id)
}

// SessionUntracked is returned when an executor still has the session on disk
// but the store has lost track of it.
func SessionUntracked(id, path string) *AgentError {
	return New(ErrCodeSessionUntracked,
		fmt.Sprintf("session '%s' exists on disk but is not tracked", id)).
		WithDetail("sessionId", id).
		WithDetail("path", path)
}

// SessionNotReady is returned when resume is attempted before an id was captured.
func SessionNotReady(key string) *AgentError {
	return New(ErrCodeSessionNotReady,
		fmt.Sprintf("run '%s' has no session id yet", key)).
		WithDetail("key", key)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *AgentError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *AgentError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// ExecutionModeNotFound creates an unknown execution mode error
func ExecutionModeNotFound(mode string, available []string) *AgentError {
	return New(ErrCodeExecutionModeNotFound,
		fmt.Sprintf("Execution mode '%s' not found. Available modes: %s", mode, listOrNone(available))).
		WithDetail("mode", mode).
		WithDetail("available", available)
}

// ExecutorNotFound creates an unknown executor error
func ExecutorNotFound(key string, available []string) *AgentError {
	return New(ErrCodeExecutorNotFound,
		fmt.Sprintf("Executor '%s' not found. Available executors: %s", key, listOrNone(available))).
		WithDetail("executor", key).
		WithDetail("available", available)
}

// SpawnFailed creates a process start failure error
func SpawnFailed(cmd string, err error) *AgentError {
	agentErr := Wrap(err, ErrCodeSpawnFailed, fmt.Sprintf("failed to start %s", cmd)).
		WithDetail("command", cmd)

	if exitErr, ok := err.(*exec.ExitError); ok {
		agentErr = agentErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return agentErr
}

// StoreCorrupt creates a store corruption warning
func StoreCorrupt(path string, err error) *AgentError {
	return Wrap(err, ErrCodeStoreCorrupt, fmt.Sprintf("could not parse session store %s", path)).
		WithDetail("path", path)
}

// StreamParse creates a malformed stream line error
func StreamParse(line string, err error) *AgentError {
	return Wrap(err, ErrCodeStreamParse, "malformed event line").
		WithDetail("line", line)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
