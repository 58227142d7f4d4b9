// Package background detaches a run into its own process and waits, for a
// bounded time, for the session id to show up in the store.
package background

import (
	"os"
	"strconv"
	"time"
)

// Environment hints passed from the launcher to the runner it forks.
const (
	EnvRunner    = "GROVE_AGENT_BACKGROUND_RUNNER"
	EnvStartTime = "GROVE_AGENT_START_TIME"
	EnvLogFile   = "GROVE_AGENT_LOG_FILE"
)

// Hints is the bookkeeping both sides of a detached run agree on.
type Hints struct {
	Runner    bool
	StartTime time.Time
	LogFile   string
}

// Env encodes the hints as KEY=VALUE entries.
func (h Hints) Env() []string {
	env := []string{
		EnvStartTime + "=" + strconv.FormatInt(h.StartTime.UnixMilli(), 10),
		EnvLogFile + "=" + h.LogFile,
	}
	if h.Runner {
		env = append([]string{EnvRunner + "=1"}, env...)
	}
	return env
}

// HintsFromEnv reads the hints through getenv. Missing or malformed values
// are left zero.
func HintsFromEnv(getenv func(string) string) Hints {
	if getenv == nil {
		getenv = os.Getenv
	}
	h := Hints{
		Runner:  getenv(EnvRunner) == "1",
		LogFile: getenv(EnvLogFile),
	}
	if raw := getenv(EnvStartTime); raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
			h.StartTime = time.UnixMilli(ms)
		}
	}
	return h
}

// StartTimeOr returns the frozen start time, or fallback when none was passed.
func (h Hints) StartTimeOr(fallback time.Time) time.Time {
	if h.StartTime.IsZero() {
		return fallback
	}
	return h.StartTime
}

// LogFileOr returns the pre-computed log path, or fallback.
func (h Hints) LogFileOr(fallback string) string {
	if h.LogFile == "" {
		return fallback
	}
	return h.LogFile
}
