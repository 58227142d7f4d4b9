package sessions

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/logging"
	"github.com/grovetools/agents/pkg/models"
	"github.com/sirupsen/logrus"
)

// Locator finds an executor's own on-disk record of a session. It returns ""
// when the executor knows nothing about the id.
type Locator func(sessionID string) (string, error)

// Resolver maps a session id to its record.
type Resolver struct {
	store    *Store
	locators []Locator
	now      func() time.Time
	log      *logrus.Entry
}

// NewResolver creates a resolver over store. Locators are consulted only to
// explain a miss.
func NewResolver(store *Store, locators ...Locator) *Resolver {
	return &Resolver{
		store:    store,
		locators: locators,
		now:      time.Now,
		log:      logging.NewLogger("sessions"),
	}
}

// Resolved is the outcome of a successful lookup.
type Resolved struct {
	Key    string
	Record *models.SessionRecord
	// Recovered is set when the id was found in a log file rather than the
	// index and has been backfilled.
	Recovered bool
}

// sessionMarkers are the literal forms of the id in a raw event stream.
func sessionMarkers(id string) [][]byte {
	return [][]byte{
		[]byte(fmt.Sprintf(`"session_id":"%s"`, id)),
		[]byte(fmt.Sprintf(`"session_id": "%s"`, id)),
	}
}

// Resolve looks id up in doc. An exact session id match wins. Otherwise the
// raw logs of records that have no session id yet are searched for the id,
// and the first match is backfilled and persisted.
func (r *Resolver) Resolve(doc *Document, id string) (*Resolved, error) {
	if id == "" {
		return nil, errors.MissingArgument("sessionId", "agents view <sessionId>")
	}
	if key, rec, ok := doc.FindBySessionID(id); ok {
		return &Resolved{Key: key, Record: rec}, nil
	}

	markers := sessionMarkers(id)
	for _, key := range doc.Keys() {
		rec := doc.Agents[key]
		if rec.SessionID != "" || rec.LogFile == "" {
			continue
		}
		content, err := os.ReadFile(rec.LogFile)
		if err != nil {
			continue
		}
		if !containsAny(content, markers) {
			continue
		}

		rec.AssignSessionID(id)
		rec.LastUsedAt = r.now()
		if err := r.store.PersistRecord(doc, key); err != nil {
			r.log.WithError(err).Warn("Failed to persist recovered session id")
		}
		r.log.WithFields(logrus.Fields{"session_id": id, "key": key}).Info("Recovered session id from log")
		return &Resolved{Key: key, Record: rec, Recovered: true}, nil
	}

	for _, locate := range r.locators {
		path, err := locate(id)
		if err != nil {
			r.log.WithError(err).Debug("Session locator failed")
			continue
		}
		if path != "" {
			return nil, errors.SessionUntracked(id, path)
		}
	}
	return nil, errors.SessionNotFound(id)
}

func containsAny(content []byte, markers [][]byte) bool {
	for _, marker := range markers {
		if bytes.Contains(content, marker) {
			return true
		}
	}
	return false
}
