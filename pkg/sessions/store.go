// Package sessions persists SessionRecords and resolves session identifiers
// back to them.
package sessions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/grovetools/agents/errors"
	"github.com/grovetools/agents/logging"
	"github.com/grovetools/agents/pkg/models"
	"github.com/grovetools/agents/util/sanitize"
)

// StoreVersion is the document version written by this build.
const StoreVersion = 1

// Document is the persisted store: every record keyed by its run key.
type Document struct {
	Version int                              `json:"version"`
	Agents  map[string]*models.SessionRecord `json:"agents"`
}

// NewDocument returns an empty document at the current version.
func NewDocument() *Document {
	return &Document{Version: StoreVersion, Agents: make(map[string]*models.SessionRecord)}
}

// Get returns the record stored under key.
func (d *Document) Get(key string) (*models.SessionRecord, bool) {
	rec, ok := d.Agents[key]
	return rec, ok && rec != nil
}

// Put stores rec under key.
func (d *Document) Put(key string, rec *models.SessionRecord) {
	if d.Agents == nil {
		d.Agents = make(map[string]*models.SessionRecord)
	}
	d.Agents[key] = rec
}

// FindBySessionID returns the record whose session id equals id.
func (d *Document) FindBySessionID(id string) (string, *models.SessionRecord, bool) {
	if id == "" {
		return "", nil, false
	}
	for _, key := range d.Keys() {
		if rec := d.Agents[key]; rec != nil && rec.SessionID == id {
			return key, rec, true
		}
	}
	return "", nil, false
}

// Keys returns the record keys in sorted order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.Agents))
	for key, rec := range d.Agents {
		if rec != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// RunKey derives the store key and log file stem of one run from the agent
// name and the run's start time.
func RunKey(agent string, start time.Time) string {
	return sanitize.ForLogFileName(agent) + "-" + strconv.FormatInt(start.UnixMilli(), 10)
}

// LogPath returns the log file of a run.
func LogPath(logsDir, agent string, start time.Time) string {
	return filepath.Join(logsDir, RunKey(agent, start)+".log")
}

// Store reads and writes the document at one path. Every save rewrites the
// whole document: concurrent invocations are last-writer-wins.
type Store struct {
	path      string
	onWarning func(error)
}

// NewStore creates a store for path. onWarning receives load problems; a nil
// callback logs them.
func NewStore(path string, onWarning func(error)) *Store {
	if onWarning == nil {
		log := logging.NewLogger("sessions")
		onWarning = func(err error) { log.WithError(err).Warn("Session store unreadable, starting empty") }
	}
	return &Store{path: path, onWarning: onWarning}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. It never fails: a corrupt or unreadable document
// is reported through onWarning and an empty document is returned. A missing
// file is the normal first-run state and is not reported.
func (s *Store) Load() *Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.onWarning(errors.StoreCorrupt(s.path, err))
		}
		return NewDocument()
	}

	doc, err := decodeDocument(data)
	if err != nil {
		s.onWarning(errors.StoreCorrupt(s.path, err))
		return NewDocument()
	}
	return doc
}

func decodeDocument(data []byte) (*Document, error) {
	doc := NewDocument()
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	if doc.Agents == nil {
		doc.Agents = make(map[string]*models.SessionRecord)
	}
	for key, rec := range doc.Agents {
		if rec == nil {
			delete(doc.Agents, key)
		}
	}
	if doc.Version == 0 {
		doc.Version = StoreVersion
	}
	return doc, nil
}

// Save writes doc and returns the document as it now exists on disk.
func (s *Store) Save(doc *Document) (*Document, error) {
	if doc == nil {
		doc = NewDocument()
	}
	if doc.Version == 0 {
		doc.Version = StoreVersion
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal session store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("create session store directory: %w", err)
	}
	if err := atomicWriteFile(s.path, append(data, '\n')); err != nil {
		return nil, fmt.Errorf("write session store: %w", err)
	}
	return decodeDocument(data)
}

// Persist saves doc and copies the written state back into it.
func (s *Store) Persist(doc *Document) error {
	saved, err := s.Save(doc)
	if err != nil {
		return err
	}
	syncInto(doc, saved)
	return nil
}

// PersistRecord re-reads the document, replaces only the record under key
// with the one held in doc, saves, and copies the result back into doc.
// Records written by other invocations since doc was loaded survive.
func (s *Store) PersistRecord(doc *Document, key string) error {
	rec, ok := doc.Get(key)
	if !ok {
		return fmt.Errorf("no session record under key %q", key)
	}
	latest := s.Load()
	latest.Put(key, rec.Clone())

	saved, err := s.Save(latest)
	if err != nil {
		return err
	}
	syncInto(doc, saved)
	return nil
}

// Update applies fn to the latest stored record under key and saves it. It
// is for writers that hold no document of their own.
func (s *Store) Update(key string, fn func(rec *models.SessionRecord)) (*models.SessionRecord, error) {
	latest := s.Load()
	rec, ok := latest.Get(key)
	if !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, fmt.Sprintf("no session record under key '%s'", key))
	}
	fn(rec)
	saved, err := s.Save(latest)
	if err != nil {
		return nil, err
	}
	return saved.Agents[key], nil
}

// syncInto makes doc mirror saved. Records that already exist in doc are
// updated in place, so pointers held elsewhere stay valid.
func syncInto(doc, saved *Document) {
	doc.Version = saved.Version
	if doc.Agents == nil {
		doc.Agents = make(map[string]*models.SessionRecord)
	}
	for key, rec := range saved.Agents {
		if existing, ok := doc.Agents[key]; ok && existing != nil {
			*existing = *rec
			continue
		}
		doc.Agents[key] = rec
	}
	for key := range doc.Agents {
		if _, ok := saved.Agents[key]; !ok {
			delete(doc.Agents, key)
		}
	}
}

// atomicWriteFile writes to a temporary file in the same directory and
// renames it over path, so readers never observe a half-written document.
func atomicWriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
