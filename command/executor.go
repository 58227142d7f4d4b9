package command

import (
	"context"
	"os/exec"
)

// Executor creates the exec.Cmd a Builder then configures. Tests substitute
// it to run a stand-in for the agent CLI.
type Executor interface {
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// OSExecutor creates commands with os/exec.
type OSExecutor struct{}

func (OSExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// FuncExecutor adapts a function into an Executor.
type FuncExecutor func(ctx context.Context, name string, args ...string) *exec.Cmd

func (f FuncExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return f(ctx, name, args...)
}
