// Package filestore implements the record store: a single serialized JSON
// document holding patients, doctors, appointments, and visit records, plus
// the monotonic id counters for each collection. Every mutation is committed
// to disk before it is acknowledged; an unreadable or corrupt document is
// recovered as the empty initial structure instead of failing.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by lookup operations when no record matches.
var ErrNotFound = errors.New("record not found")

// UnknownReferenceError reports an insert against a patient or doctor that
// does not exist. Callers are expected to validate references first; the
// store refuses the write so the document can never hold a dangling link.
type UnknownReferenceError struct {
	Kind string // "patient" or "doctor"
	Ref  string // the email that failed to resolve
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Ref)
}

// Store owns the persisted document. All access goes through View/Update so
// that read-modify-write sequences are serialized under one mutex: two
// concurrent inserts can never observe the same counter value.
type Store struct {
	path   string
	logger zerolog.Logger

	mu  sync.Mutex
	doc *Document

	// OnCommit, when set, observes the duration of every successful durable
	// commit. Set once before the store is shared.
	OnCommit func(time.Duration)

	// now is swappable in tests.
	now func() time.Time
}

// Open loads the document at path, or starts from the empty structure when
// the file is absent or unreadable. Load failures are recoverable by design
// and never returned as errors.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.doc = s.load()
	return s, nil
}

func (s *Store) load() *Document {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).
				Msg("store file unreadable, starting empty")
		}
		return NewDocument()
	}

	doc := &Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).
			Msg("store file corrupt, starting empty")
		return NewDocument()
	}
	doc.normalize()
	return doc
}

// View runs fn against a snapshot of the document. fn must not retain or
// mutate the snapshot's contents.
func (s *Store) View(fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.doc)
}

// Update runs fn against a working copy of the document and commits the copy
// to disk before swapping it in. If fn or the commit fails, the in-memory
// state is unchanged, so a failed mutation is never observable.
func (s *Store) Update(fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work, err := cloneDocument(s.doc)
	if err != nil {
		return fmt.Errorf("clone document: %w", err)
	}
	if err := fn(work); err != nil {
		return err
	}
	start := time.Now()
	if err := s.persist(work); err != nil {
		return fmt.Errorf("persist document: %w", err)
	}
	if s.OnCommit != nil {
		s.OnCommit(time.Since(start))
	}
	s.doc = work
	return nil
}

// persist writes the document to a sibling temp file and renames it into
// place so readers never see a partial write.
func (s *Store) persist(doc *Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Flush rewrites the current document. Mutations already commit before
// returning, so this is only needed as a belt at shutdown.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(s.doc)
}

// Close flushes and releases the store.
func (s *Store) Close() error {
	return s.Flush()
}

func cloneDocument(doc *Document) (*Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	out := &Document{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	out.normalize()
	return out, nil
}

func clonePatient(p *Patient) *Patient {
	out := *p
	if p.MedicalHistory != nil {
		out.MedicalHistory = append([]HistoryEntry(nil), p.MedicalHistory...)
	}
	return &out
}

func cloneDoctor(d *Doctor) *Doctor {
	out := *d
	return &out
}

func cloneAppointment(a *Appointment) *Appointment {
	out := *a
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func cloneVisitRecord(v *VisitRecord) *VisitRecord {
	out := *v
	if v.Medications != nil {
		out.Medications = append([]Medication(nil), v.Medications...)
	}
	return &out
}
