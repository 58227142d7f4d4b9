package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignSessionIDIsWriteOnce(t *testing.T) {
	r := &SessionRecord{Agent: "plan"}

	assert.False(t, r.AssignSessionID(""))
	assert.True(t, r.AssignSessionID("abc123"))
	assert.False(t, r.AssignSessionID("other"))
	assert.Equal(t, "abc123", r.SessionID)
}

func TestTrackedPIDsOrder(t *testing.T) {
	r := &SessionRecord{RunnerPID: 10, ExecutorPID: 20}
	assert.Equal(t, []int{10, 20}, r.TrackedPIDs())

	r = &SessionRecord{ExecutorPID: 20}
	assert.Equal(t, []int{20}, r.TrackedPIDs())
}

func TestCloneCopiesExitCode(t *testing.T) {
	r := &SessionRecord{ExitCode: IntPtr(3)}
	c := r.Clone()
	*c.ExitCode = 9
	assert.Equal(t, 3, *r.ExitCode)
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusStarting.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusStopped.IsTerminal())
}

func TestCountTool(t *testing.T) {
	var m Metrics
	m.CountTool("Read")
	m.CountTool("Bash")
	m.CountTool("Read")
	m.CountTool("")
	assert.Equal(t, []ToolCount{{Name: "Read", Count: 2}, {Name: "Bash", Count: 1}}, m.Tools)
}
