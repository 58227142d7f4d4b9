package models

import (
	"time"
)

// Status is the lifecycle state of a SessionRecord.
type Status string

const (
	StatusStarting  Status = "starting"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// IsTerminal reports whether no further supervisor transition is expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// SessionRecord tracks one agent invocation lineage. Records are never deleted;
// they are the history behind view and resume.
type SessionRecord struct {
	// SessionID is assigned by the executor and is empty until discovered.
	// Once set it never changes.
	SessionID     string    `json:"sessionId,omitempty"`
	Agent         string    `json:"agent"`
	Executor      string    `json:"executor"`
	ExecutionMode string    `json:"executionMode,omitempty"`
	Status        Status    `json:"status"`
	Background    bool      `json:"background"`
	RunnerPID     int       `json:"runnerPid,omitempty"`
	ExecutorPID   int       `json:"executorPid,omitempty"`
	ExitCode      *int      `json:"exitCode,omitempty"`
	Signal        string    `json:"signal,omitempty"`
	LogFile       string    `json:"logFile,omitempty"`
	CreatedAt     time.Time `json:"created"`
	LastUsedAt    time.Time `json:"lastUsed"`
	LastPrompt    string    `json:"lastPrompt,omitempty"`
	// Error holds the raw spawn error text when the executor could not start.
	Error string `json:"error,omitempty"`
}

// AssignSessionID sets the session id if none is known yet. It returns true
// when the record changed.
func (r *SessionRecord) AssignSessionID(id string) bool {
	if id == "" || r.SessionID != "" {
		return false
	}
	r.SessionID = id
	return true
}

// TrackedPIDs returns the runner and executor PIDs in signalling order.
func (r *SessionRecord) TrackedPIDs() []int {
	var pids []int
	for _, pid := range []int{r.RunnerPID, r.ExecutorPID} {
		if pid > 0 {
			pids = append(pids, pid)
		}
	}
	return pids
}

// Clone returns a deep copy of the record.
func (r *SessionRecord) Clone() *SessionRecord {
	c := *r
	if r.ExitCode != nil {
		code := *r.ExitCode
		c.ExitCode = &code
	}
	return &c
}

// IntPtr is a helper for optional integer fields.
func IntPtr(v int) *int {
	return &v
}
