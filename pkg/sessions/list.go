package sessions

import (
	"fmt"
	"sort"
	"time"

	"github.com/grovetools/agents/pkg/models"
)

// Display statuses that exist only in listings.
const (
	DisplayPendingCompletion = "pending-completion"
)

// DefaultRecentLimit is how many inactive sessions a listing shows.
const DefaultRecentLimit = 10

// Row is one line of a session listing.
type Row struct {
	Key           string    `json:"key"`
	SessionID     string    `json:"sessionId,omitempty"`
	Agent         string    `json:"agent"`
	Executor      string    `json:"executor"`
	ExecutionMode string    `json:"executionMode,omitempty"`
	Status        string    `json:"status"`
	Active        bool      `json:"active"`
	Background    bool      `json:"background"`
	LastUsedAt    time.Time `json:"lastUsed"`
	LastPrompt    string    `json:"lastPrompt,omitempty"`
	LogFile       string    `json:"logFile,omitempty"`
}

// DisplayStatus derives what to show for rec from the stored status and the
// liveness of its processes.
func DisplayStatus(rec *models.SessionRecord, alive func(pid int) bool) (string, bool) {
	if rec.Status == models.StatusRunning || rec.Status == models.StatusStarting {
		if rec.ExecutorPID > 0 && alive(rec.ExecutorPID) {
			return string(models.StatusRunning), true
		}
		if rec.RunnerPID > 0 && alive(rec.RunnerPID) {
			return DisplayPendingCompletion, true
		}
	}
	if rec.Status != models.StatusStopped && rec.ExitCode != nil {
		if *rec.ExitCode == 0 {
			return string(models.StatusCompleted), false
		}
		return fmt.Sprintf("%s (%d)", models.StatusFailed, *rec.ExitCode), false
	}
	return string(rec.Status), false
}

// List returns the active sessions followed by the most recent inactive
// ones, each group newest first. limit <= 0 keeps every inactive session.
func List(doc *Document, alive func(pid int) bool, limit int) []Row {
	var active, inactive []Row
	for _, key := range doc.Keys() {
		rec := doc.Agents[key]
		status, isActive := DisplayStatus(rec, alive)
		row := Row{
			Key:           key,
			SessionID:     rec.SessionID,
			Agent:         rec.Agent,
			Executor:      rec.Executor,
			ExecutionMode: rec.ExecutionMode,
			Status:        status,
			Active:        isActive,
			Background:    rec.Background,
			LastUsedAt:    rec.LastUsedAt,
			LastPrompt:    rec.LastPrompt,
			LogFile:       rec.LogFile,
		}
		if isActive {
			active = append(active, row)
		} else {
			inactive = append(inactive, row)
		}
	}

	byRecency := func(rows []Row) {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].LastUsedAt.After(rows[j].LastUsedAt) })
	}
	byRecency(active)
	byRecency(inactive)
	if limit > 0 && len(inactive) > limit {
		inactive = inactive[:limit]
	}
	return append(active, inactive...)
}
