package supervisor

import (
	"sync"

	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/pkg/sessions"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// mutation changes the record and reports whether it needs persisting.
type mutation struct {
	name  string
	apply func(rec *models.SessionRecord) bool
	done  chan error
}

// persistQueue serializes every change to one record and writes each change
// to the store in the order it was submitted. The output scanner, the
// extraction loop and the exit handler all go through it.
type persistQueue struct {
	mu    sync.Mutex
	store *sessions.Store
	doc   *sessions.Document
	key   string
	rec   *models.SessionRecord

	ch        chan mutation
	wg        conc.WaitGroup
	closeOnce sync.Once
	log       *logrus.Entry
}

func newPersistQueue(store *sessions.Store, doc *sessions.Document, key string, rec *models.SessionRecord, log *logrus.Entry) *persistQueue {
	q := &persistQueue{
		store: store,
		doc:   doc,
		key:   key,
		rec:   rec,
		ch:    make(chan mutation, 32),
		log:   log,
	}
	q.wg.Go(q.loop)
	return q
}

func (q *persistQueue) loop() {
	for m := range q.ch {
		q.mu.Lock()
		var err error
		if m.apply(q.rec) {
			q.adoptExternalStop()
			err = q.store.PersistRecord(q.doc, q.key)
		}
		q.mu.Unlock()

		if err != nil {
			q.log.WithError(err).WithField("change", m.name).Warn("Failed to persist session record")
		}
		if m.done != nil {
			m.done <- err
		}
	}
}

// adoptExternalStop keeps a stop issued by another invocation against the
// same process from being overwritten by this one's next write.
func (q *persistQueue) adoptExternalStop() {
	if q.rec.Status == models.StatusStopped {
		return
	}
	disk, ok := q.store.Load().Get(q.key)
	if !ok || disk.Status != models.StatusStopped {
		return
	}
	sameRunner := q.rec.RunnerPID != 0 && q.rec.RunnerPID == disk.RunnerPID
	sameExecutor := q.rec.ExecutorPID != 0 && q.rec.ExecutorPID == disk.ExecutorPID
	if !sameRunner && !sameExecutor {
		return
	}
	q.rec.Status = models.StatusStopped
	if q.rec.Signal == "" {
		q.rec.Signal = disk.Signal
	}
}

// submit queues a change without waiting for it to be written.
func (q *persistQueue) submit(name string, apply func(rec *models.SessionRecord) bool) {
	q.ch <- mutation{name: name, apply: apply}
}

// submitWait queues a change and waits until it has been written.
func (q *persistQueue) submitWait(name string, apply func(rec *models.SessionRecord) bool) error {
	done := make(chan error, 1)
	q.ch <- mutation{name: name, apply: apply, done: done}
	return <-done
}

// snapshot returns a copy of the record as of the last applied change.
func (q *persistQueue) snapshot() *models.SessionRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rec.Clone()
}

// close drains pending changes and stops the writer.
func (q *persistQueue) close() {
	q.closeOnce.Do(func() {
		close(q.ch)
		q.wg.Wait()
	})
}
