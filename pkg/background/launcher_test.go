package background

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/pkg/sessions"
	"github.com/grovetools/agents/pkg/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T, rec *models.SessionRecord) (*sessions.Store, string) {
	t.Helper()
	store := sessions.NewStore(filepath.Join(t.TempDir(), "sessions.json"), nil)
	doc := store.Load()
	doc.Put("run-1", rec)
	require.NoError(t, store.Persist(doc))
	return store, "run-1"
}

func TestPollTimesOutWithoutTouchingStatus(t *testing.T) {
	store, key := seededStore(t, &models.SessionRecord{Agent: "a", Status: models.StatusRunning, RunnerPID: 1234})
	clock := supervisor.NewFakeClock(time.Now())
	launcher := NewLauncher(store, WithClock(clock), WithWatch(false))

	done := make(chan struct{})
	var id string
	var ok bool
	go func() {
		defer close(done)
		id, ok = launcher.Poll(context.Background(), key)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Poll did not return")
	}

	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Len(t, clock.Waits(), int(DefaultPollTimeout/DefaultPollInterval))

	rec, _ := store.Load().Get(key)
	assert.Equal(t, models.StatusRunning, rec.Status)
}

func TestPollFindsSessionID(t *testing.T) {
	store, key := seededStore(t, &models.SessionRecord{Agent: "a", Status: models.StatusRunning, SessionID: "abc"})
	launcher := NewLauncher(store, WithClock(supervisor.NewFakeClock(time.Now())), WithWatch(false))

	id, ok := launcher.Poll(context.Background(), key)
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestPollWakesOnStoreWrite(t *testing.T) {
	store, key := seededStore(t, &models.SessionRecord{Agent: "a", Status: models.StatusRunning})
	launcher := NewLauncher(store, WithPolling(time.Hour, 2*time.Hour))

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = store.Update(key, func(r *models.SessionRecord) { r.SessionID = "woken" })
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, ok := launcher.Poll(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, "woken", id)
}

func TestLaunchStartsRunnerWithHints(t *testing.T) {
	store, key := seededStore(t, &models.SessionRecord{Agent: "a", Status: models.StatusStarting})
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	start := time.UnixMilli(1759320000123)

	launcher := NewLauncher(store,
		WithClock(supervisor.NewFakeClock(start)),
		WithWatch(false),
		WithDetach(false),
		WithExecutable(func() (string, error) { return "/bin/sh", nil }),
	)

	script := fmt.Sprintf(`echo "$%s $%s $%s" > %s`, EnvRunner, EnvStartTime, EnvLogFile, marker)
	result, err := launcher.Launch(context.Background(), LaunchSpec{
		Key:       key,
		Args:      []string{"-c", script},
		StartTime: start,
		LogFile:   "/tmp/a.log",
		RunnerLog: filepath.Join(dir, "background", "run-1.runner.log"),
	})
	require.NoError(t, err)

	assert.True(t, result.TimedOut)
	assert.NotZero(t, result.RunnerPID)

	rec, _ := store.Load().Get(key)
	assert.Equal(t, models.StatusRunning, rec.Status)
	assert.Equal(t, result.RunnerPID, rec.RunnerPID)
	assert.True(t, rec.Background)

	var content []byte
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if content, err = os.ReadFile(marker); err == nil && len(content) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, "1 1759320000123 /tmp/a.log\n", string(content))
}

func TestLaunchFailureIsRecorded(t *testing.T) {
	store, key := seededStore(t, &models.SessionRecord{Agent: "a", Status: models.StatusStarting})
	launcher := NewLauncher(store,
		WithWatch(false),
		WithExecutable(func() (string, error) { return "", fmt.Errorf("no executable") }),
	)

	_, err := launcher.Launch(context.Background(), LaunchSpec{Key: key, RunnerLog: filepath.Join(t.TempDir(), "r.log")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSpawnFailed))

	rec, _ := store.Load().Get(key)
	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.NotEmpty(t, rec.Error)
}
