package sessions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *[]error) {
	t.Helper()
	var warnings []error
	store := NewStore(filepath.Join(t.TempDir(), "agents", "sessions.json"), func(err error) {
		warnings = append(warnings, err)
	})
	return store, &warnings
}

func TestLoadMissingStore(t *testing.T) {
	store, warnings := newTestStore(t)

	doc := store.Load()
	assert.Equal(t, StoreVersion, doc.Version)
	assert.Empty(t, doc.Agents)
	assert.Empty(t, *warnings)
}

func TestLoadCorruptStore(t *testing.T) {
	store, warnings := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0755))
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"version":1,"agents":{`), 0644))

	doc := store.Load()
	assert.Empty(t, doc.Agents)
	require.Len(t, *warnings, 1)
	assert.True(t, errors.Is((*warnings)[0], errors.ErrCodeStoreCorrupt))
}

func TestPersistRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	doc := store.Load()

	created := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	rec := &models.SessionRecord{
		SessionID: "abc123",
		Agent:     "reviewer",
		Executor:  "codex",
		Status:    models.StatusCompleted,
		ExitCode:  models.IntPtr(0),
		LogFile:   "/tmp/reviewer-1.log",
		CreatedAt: created,
	}
	doc.Put("reviewer-1", rec)
	require.NoError(t, store.Persist(doc))

	assert.Same(t, rec, doc.Agents["reviewer-1"], "persist keeps record identity")

	loaded, ok := store.Load().Get("reviewer-1")
	require.True(t, ok)
	assert.Equal(t, "abc123", loaded.SessionID)
	assert.Equal(t, models.StatusCompleted, loaded.Status)
	assert.Equal(t, "/tmp/reviewer-1.log", loaded.LogFile)
	assert.True(t, created.Equal(loaded.CreatedAt))
}

func TestSaveLastWriterWins(t *testing.T) {
	store, _ := newTestStore(t)
	base := store.Load()
	base.Put("seed", &models.SessionRecord{Agent: "seed", Status: models.StatusCompleted})
	require.NoError(t, store.Persist(base))

	snapshot := store.Load()

	first := &Document{Version: snapshot.Version, Agents: map[string]*models.SessionRecord{}}
	second := &Document{Version: snapshot.Version, Agents: map[string]*models.SessionRecord{}}
	for key, rec := range snapshot.Agents {
		first.Agents[key] = rec.Clone()
		second.Agents[key] = rec.Clone()
	}
	first.Put("alpha", &models.SessionRecord{Agent: "alpha", Status: models.StatusRunning})
	second.Put("beta", &models.SessionRecord{Agent: "beta", Status: models.StatusRunning})

	_, err := store.Save(first)
	require.NoError(t, err)
	_, err = store.Save(second)
	require.NoError(t, err)

	final := store.Load()
	_, hasAlpha := final.Get("alpha")
	_, hasBeta := final.Get("beta")
	assert.False(t, hasAlpha, "the earlier save is overwritten")
	assert.True(t, hasBeta, "the later save wins")
	assert.Len(t, final.Agents, 2)
}

func TestSaveReturnsWrittenDocument(t *testing.T) {
	store, _ := newTestStore(t)
	doc := &Document{}
	doc.Put("k", &models.SessionRecord{Agent: "a", Status: models.StatusStarting})

	saved, err := store.Save(doc)
	require.NoError(t, err)
	assert.Equal(t, StoreVersion, saved.Version)
	assert.NotSame(t, doc.Agents["k"], saved.Agents["k"])
	assert.Equal(t, models.StatusStarting, saved.Agents["k"].Status)
}

func TestRunKeyAndLogPath(t *testing.T) {
	start := time.UnixMilli(1759320000123)
	assert.Equal(t, "code-reviewer-1759320000123", RunKey("Code Reviewer", start))
	assert.Equal(t, filepath.Join("/logs", "code-reviewer-1759320000123.log"), LogPath("/logs", "Code Reviewer", start))
}

func TestPersistRecordKeepsOtherWriters(t *testing.T) {
	store, _ := newTestStore(t)
	mine := store.Load()
	mine.Put("mine", &models.SessionRecord{Agent: "a", Status: models.StatusStarting})
	require.NoError(t, store.PersistRecord(mine, "mine"))

	other := store.Load()
	other.Put("theirs", &models.SessionRecord{Agent: "b", Status: models.StatusRunning})
	require.NoError(t, store.Persist(other))

	rec := mine.Agents["mine"]
	rec.Status = models.StatusRunning
	require.NoError(t, store.PersistRecord(mine, "mine"))

	assert.Same(t, rec, mine.Agents["mine"])
	_, ok := mine.Get("theirs")
	assert.True(t, ok, "the other invocation's record is picked up")

	final := store.Load()
	assert.Len(t, final.Agents, 2)
	assert.Equal(t, models.StatusRunning, final.Agents["mine"].Status)

	assert.Error(t, store.PersistRecord(mine, "unknown"))
}

func TestUpdate(t *testing.T) {
	store, _ := newTestStore(t)
	doc := store.Load()
	doc.Put("k", &models.SessionRecord{Agent: "a", Status: models.StatusRunning, ExecutorPID: 9})
	require.NoError(t, store.Persist(doc))

	rec, err := store.Update("k", func(r *models.SessionRecord) { r.RunnerPID = 8 })
	require.NoError(t, err)
	assert.Equal(t, 8, rec.RunnerPID)
	assert.Equal(t, 9, rec.ExecutorPID)

	_, err = store.Update("missing", func(*models.SessionRecord) {})
	assert.True(t, errors.Is(err, errors.ErrCodeSessionNotFound))
}
