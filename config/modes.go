package config

import (
	"github.com/grovetools/agents/errors"
)

// DefaultModeName is resolved to an empty mode when no mode of that name is configured.
const DefaultModeName = "default"

// ResolveExecutionMode looks up name among executionModes and the legacy
// presets. An empty name falls back to defaults.executionMode.
func (c *Config) ResolveExecutionMode(name string) (string, ExecutionMode, error) {
	if name == "" {
		name = c.Defaults.ExecutionMode
	}
	if name == "" {
		return "", ExecutionMode{}, nil
	}
	if mode, ok := c.ExecutionModes[name]; ok {
		return name, mode, nil
	}
	if mode, ok := c.Presets[name]; ok {
		return name, mode, nil
	}
	if name == DefaultModeName {
		return name, ExecutionMode{}, nil
	}
	return "", ExecutionMode{}, errors.ExecutionModeNotFound(name, c.ModeNames())
}

// OverridesFor returns the part of the mode's overrides that applies to
// executorKey. Overrides may be scoped as overrides.executors.<key>,
// as overrides.<key>, or apply to every executor as a whole block.
func (m ExecutionMode) OverridesFor(executorKey string) map[string]interface{} {
	if len(m.Overrides) == 0 {
		return nil
	}
	if scoped, ok := asMap(m.Overrides["executors"]); ok {
		if forKey, ok := asMap(scoped[executorKey]); ok {
			return DeepClone(forKey)
		}
		return nil
	}
	if forKey, ok := asMap(m.Overrides[executorKey]); ok {
		return DeepClone(forKey)
	}
	return DeepClone(m.Overrides)
}

// ExecutorOverrides returns the user's customization of executor defaults.
func (c *Config) ExecutorOverrides(executorKey string) map[string]interface{} {
	return DeepClone(c.Executors[executorKey])
}

// ResolveExecutor picks the executor key: explicit choice, then the mode's
// executor, then defaults.executor.
func (c *Config) ResolveExecutor(explicit string, mode ExecutionMode) string {
	switch {
	case explicit != "":
		return explicit
	case mode.Executor != "":
		return mode.Executor
	}
	return c.Defaults.Executor
}
