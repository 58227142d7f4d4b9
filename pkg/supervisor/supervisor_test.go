package supervisor

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/agents/command"
	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/pkg/executor"
	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/pkg/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// fakeExecutor reads session ids from {"session_id":...} lines and returns
// queued answers from ExtractSessionID.
type fakeExecutor struct {
	mu       sync.Mutex
	pulls    []string
	attempts int
}

func (f *fakeExecutor) Key() string                           { return "fake" }
func (f *fakeExecutor) DefaultConfig() map[string]interface{} { return map[string]interface{}{} }
func (f *fakeExecutor) BuildRunCommand(map[string]interface{}, string, string) (executor.Command, error) {
	return executor.Command{Name: "fake"}, nil
}
func (f *fakeExecutor) BuildResumeCommand(map[string]interface{}, string, string) (executor.Command, error) {
	return executor.Command{Name: "fake"}, nil
}
func (f *fakeExecutor) SessionExtractionDelay(_ map[string]interface{}, fallback time.Duration) time.Duration {
	return fallback
}
func (f *fakeExecutor) ExtractSessionID(time.Time, map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if len(f.pulls) == 0 {
		return "", nil
	}
	id := f.pulls[0]
	f.pulls = f.pulls[1:]
	return id, nil
}
func (f *fakeExecutor) SessionIDFromEvent(line []byte) string {
	return gjson.GetBytes(line, "session_id").String()
}
func (f *fakeExecutor) SessionIDFromLog(content []byte) string {
	for _, line := range bytes.Split(content, []byte("\n")) {
		if id := gjson.GetBytes(line, "late_id").String(); id != "" {
			return id
		}
	}
	return ""
}
func (f *fakeExecutor) LocateSessionFile(string, map[string]interface{}) (string, error) {
	return "", nil
}
func (f *fakeExecutor) NewOutputFilter(dst io.Writer) io.WriteCloser {
	return nopCloser{dst}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// shellBuilder runs script with /bin/sh whatever command is requested.
func shellBuilder(script string) *command.Builder {
	return command.NewBuilderWithExecutor(command.FuncExecutor(func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "/bin/sh", "-c", script)
	}))
}

type fixture struct {
	store *sessions.Store
	doc   *sessions.Document
	key   string
	clock *FakeClock
	out   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store := sessions.NewStore(filepath.Join(dir, "sessions.json"), func(err error) { t.Logf("store warning: %v", err) })
	start := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

	doc := store.Load()
	key := sessions.RunKey("tester", start)
	doc.Put(key, &models.SessionRecord{
		Agent:      "tester",
		Executor:   "fake",
		Status:     models.StatusStarting,
		LogFile:    filepath.Join(dir, "logs", key+".log"),
		CreatedAt:  start,
		LastUsedAt: start,
	})
	require.NoError(t, store.Persist(doc))

	return &fixture{store: store, doc: doc, key: key, clock: NewFakeClock(start), out: &bytes.Buffer{}}
}

func (f *fixture) supervisor(script string, opts ...Option) *Supervisor {
	base := []Option{WithClock(f.clock), WithBuilder(shellBuilder(script)), WithOutput(f.out, f.out)}
	return New(f.store, append(base, opts...)...)
}

func (f *fixture) spec(exec executor.Executor, interactive bool) RunSpec {
	return RunSpec{
		Doc:             f.doc,
		Key:             f.key,
		Executor:        exec,
		Command:         executor.Command{Name: "fake"},
		StartTime:       f.clock.Now(),
		Interactive:     interactive,
		ExtractionDelay: 5 * time.Second,
	}
}

func (f *fixture) stored(t *testing.T) *models.SessionRecord {
	t.Helper()
	rec, ok := f.store.Load().Get(f.key)
	require.True(t, ok)
	return rec
}

func TestSuperviseCompletedRun(t *testing.T) {
	f := newFixture(t)
	script := `echo '{"type":"init","session_id":"s-1"}'; echo 'working'; echo oops >&2; exit 0`

	outcome := f.supervisor(script).Supervise(context.Background(), f.spec(&fakeExecutor{}, true))

	require.NoError(t, outcome.Err)
	assert.Equal(t, models.StatusCompleted, outcome.Status)
	assert.Equal(t, "s-1", outcome.SessionID)
	require.NotNil(t, outcome.ExitCode)
	assert.Equal(t, 0, *outcome.ExitCode)

	rec := f.stored(t)
	assert.Equal(t, models.StatusCompleted, rec.Status)
	assert.Equal(t, "s-1", rec.SessionID)
	assert.NotZero(t, rec.ExecutorPID)

	raw, err := os.ReadFile(rec.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `{"type":"init","session_id":"s-1"}`+"\n")
	assert.Contains(t, string(raw), "working\n")
	assert.Contains(t, string(raw), "oops\n")

	assert.Contains(t, f.out.String(), "working")
	assert.Contains(t, f.out.String(), "Agent completed")
}

func TestSuperviseFailedRun(t *testing.T) {
	f := newFixture(t)

	outcome := f.supervisor(`echo nothing useful; exit 3`).Supervise(context.Background(), f.spec(&fakeExecutor{}, false))

	assert.Equal(t, models.StatusFailed, outcome.Status)
	require.NotNil(t, outcome.ExitCode)
	assert.Equal(t, 3, *outcome.ExitCode)
	assert.Contains(t, outcome.Notes, "session id not captured; check the log for details")
	assert.Empty(t, f.out.String(), "detached runs print nothing")

	rec := f.stored(t)
	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.Equal(t, 3, *rec.ExitCode)
}

func TestSuperviseSpawnError(t *testing.T) {
	f := newFixture(t)
	builder := command.NewBuilderWithExecutor(command.FuncExecutor(func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, filepath.Join(t.TempDir(), "no-such-binary"))
	}))

	outcome := f.supervisor("", WithBuilder(builder)).Supervise(context.Background(), f.spec(&fakeExecutor{}, true))

	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.True(t, errors.Is(outcome.Err, errors.ErrCodeSpawnFailed))
	assert.Contains(t, f.out.String(), "Agent failed")

	rec := f.stored(t)
	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.NotEmpty(t, rec.Error)
	assert.Zero(t, rec.ExecutorPID)
}

func TestSupervisePullExtraction(t *testing.T) {
	f := newFixture(t)
	exec := &fakeExecutor{pulls: []string{"", "", "pulled-id"}}

	outcome := f.supervisor(`sleep 1`).Supervise(context.Background(), f.spec(exec, false))

	assert.Equal(t, "pulled-id", outcome.SessionID)
	assert.Equal(t, []time.Duration{5 * time.Second, 2 * time.Second, 3 * time.Second}, f.clock.Waits())
	assert.Equal(t, 3, exec.attempts)
	assert.Equal(t, "pulled-id", f.stored(t).SessionID)
}

func TestSuperviseRecoversIDFromLog(t *testing.T) {
	f := newFixture(t)

	outcome := f.supervisor(`echo '{"late_id":"from-log"}'`, WithBackoff()).Supervise(context.Background(), f.spec(&fakeExecutor{}, false))

	assert.Equal(t, "from-log", outcome.SessionID)
}

func TestSuperviseKeepsExternalStop(t *testing.T) {
	f := newFixture(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			other := f.store.Load()
			if rec, ok := other.Get(f.key); ok && rec.Status == models.StatusRunning {
				rec.Status = models.StatusStopped
				rec.Signal = "SIGTERM"
				_ = f.store.PersistRecord(other, f.key)
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	outcome := f.supervisor(`sleep 1; exit 1`, WithBackoff()).Supervise(context.Background(), f.spec(&fakeExecutor{}, false))
	<-done

	assert.Equal(t, models.StatusStopped, outcome.Status)
	assert.Equal(t, "SIGTERM", outcome.Signal)
	rec := f.stored(t)
	assert.Equal(t, models.StatusStopped, rec.Status)
	require.NotNil(t, rec.ExitCode)
	assert.Equal(t, 1, *rec.ExitCode)
}

func TestSuperviseMissingRecord(t *testing.T) {
	f := newFixture(t)
	spec := f.spec(&fakeExecutor{}, false)
	spec.Key = "unknown"

	outcome := f.supervisor("true").Supervise(context.Background(), spec)
	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Error(t, outcome.Err)
}

func TestRenderSummary(t *testing.T) {
	var out bytes.Buffer
	RenderSummary(&out, &Outcome{
		Status:    models.StatusFailed,
		ExitCode:  models.IntPtr(2),
		SessionID: "abc",
		Elapsed:   1500 * time.Millisecond,
		LogFile:   "/tmp/x.log",
		Notes:     []string{"something to know"},
	})

	text := out.String()
	for _, want := range []string{"Agent failed", "1.5s", "exit code", "abc", "/tmp/x.log", "something to know"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestRecordExit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		rec        models.SessionRecord
		exitCode   *int
		signal     string
		wantStatus models.Status
		wantSignal string
	}{
		{"clean exit", models.SessionRecord{Status: models.StatusRunning}, models.IntPtr(0), "", models.StatusCompleted, ""},
		{"nonzero exit", models.SessionRecord{Status: models.StatusRunning}, models.IntPtr(2), "", models.StatusFailed, ""},
		{"killed while running", models.SessionRecord{Status: models.StatusRunning}, nil, "SIGKILL", models.StatusFailed, "SIGKILL"},
		{"stopped keeps stop signal", models.SessionRecord{Status: models.StatusStopped, Signal: "SIGTERM"}, nil, "SIGKILL", models.StatusStopped, "SIGTERM"},
		{"stopped without signal", models.SessionRecord{Status: models.StatusStopped}, nil, "SIGTERM", models.StatusStopped, "SIGTERM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec
			assert.True(t, recordExit(tt.exitCode, tt.signal, now)(&rec))
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, tt.wantSignal, rec.Signal)
			assert.Equal(t, tt.exitCode, rec.ExitCode)
			assert.Equal(t, now, rec.LastUsedAt)
		})
	}
}
