package command

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Spec describes a process to start.
type Spec struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds KEY=VALUE entries added on top of the inherited environment.
	// Later entries win over earlier ones and over inherited values.
	Env []string
	// Detach starts the process in its own session so it survives the
	// parent's terminal closing.
	Detach bool
}

// Builder validates a Spec and turns it into an exec.Cmd.
type Builder struct {
	executor Executor
}

// NewBuilder creates a Builder backed by the real os/exec package.
func NewBuilder() *Builder {
	return NewBuilderWithExecutor(OSExecutor{})
}

// NewBuilderWithExecutor creates a Builder with a custom Executor.
func NewBuilderWithExecutor(exec Executor) *Builder {
	if exec == nil {
		exec = OSExecutor{}
	}
	return &Builder{executor: exec}
}

// Validate checks a Spec without building it.
func Validate(spec Spec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if strings.ContainsRune(spec.Name, 0) {
		return fmt.Errorf("command name contains a NUL byte")
	}
	for i, arg := range spec.Args {
		if strings.ContainsRune(arg, 0) {
			return fmt.Errorf("argument %d contains a NUL byte", i)
		}
	}
	for _, kv := range spec.Env {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid environment entry %q (want KEY=VALUE)", kv)
		}
	}
	if spec.Dir != "" {
		info, err := os.Stat(spec.Dir)
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("working directory %s is not a directory", spec.Dir)
		}
	}
	return nil
}

// Build validates spec and creates a command bound to ctx.
func (b *Builder) Build(ctx context.Context, spec Spec) (*exec.Cmd, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}

	cmd := b.executor.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = MergeEnv(os.Environ(), spec.Env)
	if spec.Detach {
		detach(cmd)
	}
	return cmd, nil
}

// MergeEnv returns base with every entry of extra applied on top of it.
func MergeEnv(base, extra []string) []string {
	index := make(map[string]int, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, kv := range list {
			key, _, _ := strings.Cut(kv, "=")
			if i, ok := index[key]; ok {
				out[i] = kv
				continue
			}
			index[key] = len(out)
			out = append(out, kv)
		}
	}
	return out
}
