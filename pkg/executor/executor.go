// Package executor defines the contract every agent executor implements and
// the registry the commands use to look them up.
package executor

import (
	"io"
	"sort"
	"time"

	"github.com/grovetools/agents/config"
	"github.com/grovetools/agents/errors"
)

// SpawnOptions carries process settings for a built command.
type SpawnOptions struct {
	// Dir is the working directory. Empty means the caller's directory.
	Dir string
	// Env lists extra KEY=VALUE entries appended to the inherited environment.
	Env []string
}

// Command is a fully built executor invocation.
type Command struct {
	Name    string
	Args    []string
	Options SpawnOptions
}

// Executor adapts one external coding-agent program.
//
// Builders receive the merged settings map and must not modify it.
type Executor interface {
	// Key is the registry name, e.g. "codex".
	Key() string

	// DefaultConfig returns a fresh copy of the built-in settings.
	DefaultConfig() map[string]interface{}

	BuildRunCommand(settings map[string]interface{}, instructionsPath, prompt string) (Command, error)
	BuildResumeCommand(settings map[string]interface{}, sessionID, prompt string) (Command, error)

	// SessionExtractionDelay is how long to wait before the first pull-based
	// ExtractSessionID attempt.
	SessionExtractionDelay(settings map[string]interface{}, fallback time.Duration) time.Duration

	// ExtractSessionID looks for the session id through a side channel such
	// as the executor's own session files. It returns "" when nothing matches.
	ExtractSessionID(startTime time.Time, settings map[string]interface{}) (string, error)

	// SessionIDFromEvent inspects one stdout line for a session-created event.
	SessionIDFromEvent(line []byte) string

	// SessionIDFromLog recovers the session id from a complete raw log.
	SessionIDFromLog(content []byte) string

	// LocateSessionFile finds the executor's own record of a session on disk.
	LocateSessionFile(sessionID string, settings map[string]interface{}) (string, error)

	// NewOutputFilter returns a writer that forwards a trimmed projection of
	// the raw event stream to dst. Close flushes any partial line.
	NewOutputFilter(dst io.Writer) io.WriteCloser
}

// Registry maps executor keys to implementations. It is built once per
// invocation and passed to whatever needs it.
type Registry struct {
	executors map[string]Executor
}

// NewRegistry builds a registry from explicit implementations.
func NewRegistry(executors ...Executor) *Registry {
	r := &Registry{executors: make(map[string]Executor, len(executors))}
	for _, e := range executors {
		r.executors[e.Key()] = e
	}
	return r
}

// builtins maps descriptor names to constructors.
var builtins = map[string]func() Executor{
	"claude": func() Executor { return NewClaude() },
	"codex":  func() Executor { return NewCodex() },
}

// Discover maps descriptor names to implementations. With no names it
// returns every built-in executor. Unknown names are returned separately so
// the caller can warn about them.
func Discover(names ...string) (*Registry, []string) {
	if len(names) == 0 {
		for name := range builtins {
			names = append(names, name)
		}
	}

	var found []Executor
	var unknown []string
	for _, name := range names {
		constructor, ok := builtins[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		found = append(found, constructor())
	}
	sort.Strings(unknown)
	return NewRegistry(found...), unknown
}

// Get returns the executor for key.
func (r *Registry) Get(key string) (Executor, error) {
	e, ok := r.executors[key]
	if !ok {
		return nil, errors.ExecutorNotFound(key, r.Keys())
	}
	return e, nil
}

// Keys returns the registered executor keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.executors))
	for key := range r.executors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ResolveSettings layers executor defaults (built-in, then the user's
// executors.<key> block) < execution-mode overrides < agent overrides.
func (r *Registry) ResolveSettings(key string, userDefaults, modeOverrides, agentOverrides map[string]interface{}) (map[string]interface{}, error) {
	e, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	settings := config.DeepMerge(e.DefaultConfig(), userDefaults)
	settings = config.DeepMerge(settings, modeOverrides)
	settings = config.DeepMerge(settings, SplitAgentOverrides(settings, agentOverrides))
	return settings, nil
}

// SplitAgentOverrides places flat agent metadata into the settings shape.
// Keys that exist at the top level of settings (binary, sessionsDir, exec,
// resume, ...) stay at the top level; every other key is an exec option.
func SplitAgentOverrides(settings, overrides map[string]interface{}) map[string]interface{} {
	if len(overrides) == 0 {
		return nil
	}
	out := make(map[string]interface{})
	exec := make(map[string]interface{})
	for key, value := range overrides {
		if _, topLevel := settings[key]; topLevel {
			out[key] = value
			continue
		}
		exec[key] = value
	}
	if len(exec) > 0 {
		out = config.DeepMerge(out, map[string]interface{}{"exec": exec})
	}
	return out
}

func delayFrom(ms *int, fallback time.Duration) time.Duration {
	if ms != nil && *ms >= 0 {
		return time.Duration(*ms) * time.Millisecond
	}
	return fallback
}
