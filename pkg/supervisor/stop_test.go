package supervisor

import (
	"fmt"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/pkg/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcesses struct {
	alive    map[int]bool
	signals  []int
	failures map[int]error
}

func (p *fakeProcesses) control() ProcessControl {
	return ProcessControl{
		Alive: func(pid int) bool { return p.alive[pid] },
		Signal: func(pid int, sig syscall.Signal) error {
			if err := p.failures[pid]; err != nil {
				return err
			}
			p.signals = append(p.signals, pid)
			p.alive[pid] = false
			return nil
		},
	}
}

func stopFixture(t *testing.T, rec *models.SessionRecord) (*sessions.Store, *sessions.Document) {
	t.Helper()
	store := sessions.NewStore(filepath.Join(t.TempDir(), "sessions.json"), nil)
	doc := store.Load()
	doc.Put("k", rec)
	require.NoError(t, store.Persist(doc))
	return store, doc
}

func TestStopSignalsRunnerThenExecutor(t *testing.T) {
	store, doc := stopFixture(t, &models.SessionRecord{SessionID: "s", Status: models.StatusRunning, RunnerPID: 100, ExecutorPID: 200})
	procs := &fakeProcesses{alive: map[int]bool{100: true, 200: true}}
	now := time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC)

	result, err := Stop(store, doc, "k", procs.control(), now)
	require.NoError(t, err)

	assert.False(t, result.NoActiveProcess)
	assert.Equal(t, []int{100, 200}, procs.signals)

	rec, _ := store.Load().Get("k")
	assert.Equal(t, models.StatusStopped, rec.Status)
	assert.Equal(t, "SIGTERM", rec.Signal)
	assert.True(t, now.Equal(rec.LastUsedAt))
}

func TestStopTwiceIsIdempotent(t *testing.T) {
	store, doc := stopFixture(t, &models.SessionRecord{SessionID: "s", Status: models.StatusStopped, RunnerPID: 100, ExecutorPID: 200})
	procs := &fakeProcesses{alive: map[int]bool{}}

	for i := 0; i < 2; i++ {
		result, err := Stop(store, doc, "k", procs.control(), time.Now())
		require.NoError(t, err)
		assert.True(t, result.NoActiveProcess, "attempt %d", i+1)
	}
	assert.Empty(t, procs.signals)

	rec, _ := store.Load().Get("k")
	assert.Equal(t, models.StatusStopped, rec.Status)
	assert.Empty(t, rec.Signal, "a no-op stop leaves the record untouched")
}

func TestStopRecordsSignalFailures(t *testing.T) {
	store, doc := stopFixture(t, &models.SessionRecord{Status: models.StatusRunning, ExecutorPID: 200, Signal: "SIGINT"})
	procs := &fakeProcesses{alive: map[int]bool{200: true}, failures: map[int]error{200: fmt.Errorf("operation not permitted")}}

	result, err := Stop(store, doc, "k", procs.control(), time.Now())
	require.NoError(t, err)
	assert.Contains(t, result.Failures, 200)

	rec, _ := store.Load().Get("k")
	assert.Equal(t, models.StatusStopped, rec.Status)
	assert.Equal(t, "SIGINT", rec.Signal, "an existing signal is kept")
}

func TestStopUnknownKey(t *testing.T) {
	store, doc := stopFixture(t, &models.SessionRecord{})
	_, err := Stop(store, doc, "missing", (&fakeProcesses{alive: map[int]bool{}}).control(), time.Now())
	assert.Error(t, err)
}
