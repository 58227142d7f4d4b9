package supervisor

import (
	"syscall"
	"time"

	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/pkg/process"
	"github.com/grovetools/agents/pkg/sessions"
)

// ProcessControl is how Stop probes and signals PIDs.
type ProcessControl struct {
	Alive  func(pid int) bool
	Signal func(pid int, sig syscall.Signal) error
}

// SystemProcessControl probes and signals real processes.
func SystemProcessControl() ProcessControl {
	return ProcessControl{Alive: process.IsProcessAlive, Signal: process.Terminate}
}

// StopResult reports what Stop did.
type StopResult struct {
	Key       string
	SessionID string
	// NoActiveProcess is set when none of the tracked PIDs was alive. The
	// record is left untouched in that case.
	NoActiveProcess bool
	Signalled       []int
	// Failures maps PIDs to the error signalling them returned.
	Failures map[int]error
}

// Stop sends SIGTERM to the record's live PIDs, runner first, and marks the
// record stopped without waiting for the processes to exit.
func Stop(store *sessions.Store, doc *sessions.Document, key string, ctl ProcessControl, now time.Time) (*StopResult, error) {
	rec, ok := doc.Get(key)
	if !ok {
		return nil, errNoRecord(key)
	}
	result := &StopResult{Key: key, SessionID: rec.SessionID}

	var live []int
	for _, pid := range rec.TrackedPIDs() {
		if ctl.Alive(pid) {
			live = append(live, pid)
		}
	}
	if len(live) == 0 {
		result.NoActiveProcess = true
		return result, nil
	}

	for _, pid := range live {
		if err := ctl.Signal(pid, syscall.SIGTERM); err != nil {
			if result.Failures == nil {
				result.Failures = make(map[int]error)
			}
			result.Failures[pid] = err
			continue
		}
		result.Signalled = append(result.Signalled, pid)
	}

	rec.Status = models.StatusStopped
	rec.LastUsedAt = now
	if rec.Signal == "" {
		rec.Signal = process.SignalName(syscall.SIGTERM)
	}
	if err := store.PersistRecord(doc, key); err != nil {
		return result, err
	}
	return result, nil
}

func errNoRecord(key string) error {
	return errors.New(errors.ErrCodeSessionNotFound, "no session record under key '"+key+"'")
}
