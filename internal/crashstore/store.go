// Package crashstore persists worker panic reports on disk.
package crashstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"loom/internal/panics"
)

// Current schema version - increment when Record format changes
const schemaVersion uint16 = 1

const ext = ".mp"

var (
	// ErrNotFound is returned by Get when no record matches.
	ErrNotFound = errors.New("crash report not found")
	// ErrInvalidID is returned by Get for ids that cannot name a record.
	ErrInvalidID = errors.New("invalid crash report id")
)

// Record is one persisted panic report.
type Record struct {
	Schema     uint16
	ID         string
	Time       time.Time
	Thread     string
	Message    string
	HasMessage bool
	File       string
	Line       uint32
	Calls      []string
	Stack      string
	Text       string
	Trace      []string // recent trace events, oldest first
}

// NewRecord converts a report into a record with a fresh ID.
func NewRecord(rep panics.Report, traceLines []string) (Record, error) {
	rec := Record{
		Schema:     schemaVersion,
		ID:         uuid.NewString(),
		Time:       rep.Time,
		Thread:     rep.Thread,
		Message:    rep.Message,
		HasMessage: rep.HasMessage,
		Stack:      rep.Stack,
		Text:       rep.Text,
		Trace:      traceLines,
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	if rep.Location != nil {
		line, err := safecast.Conv[uint32](rep.Location.Line)
		if err != nil {
			return Record{}, fmt.Errorf("report line: %w", err)
		}
		rec.File, rec.Line = rep.Location.File, line
	}
	for _, c := range rep.Context.Calls() {
		rec.Calls = append(rec.Calls, c.Plain())
	}
	return rec, nil
}

// Store keeps records as msgpack files in one directory.
// Thread-safe for concurrent access.
type Store struct {
	mu   sync.RWMutex
	dir  string
	keep int
}

// Open returns the store at the standard location for app, keeping at most
// keep records (0 keeps everything).
func Open(app string, keep int) (*Store, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app, "crashes"), keep)
}

// OpenDir returns a store rooted at dir, creating it if needed.
func OpenDir(dir string, keep int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, keep: max(0, keep)}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) pathFor(id string) string {
	return filepath.Join(s.dir, id+ext)
}

// Save records rep and prunes old records.
func (s *Store) Save(rep panics.Report, traceLines []string) (Record, error) {
	rec, err := NewRecord(rep, traceLines)
	if err != nil {
		return Record{}, err
	}
	if err := s.Put(&rec); err != nil {
		return Record{}, err
	}
	if s.keep > 0 {
		if _, err := s.Prune(s.keep); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// Put serializes and writes a record.
func (s *Store) Put(rec *Record) (err error) {
	if s == nil {
		return nil
	}
	if rec.ID == "" {
		return errors.New("record without ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.CreateTemp(s.dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if err = msgpack.NewEncoder(f).Encode(rec); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), s.pathFor(rec.ID))
}

// Get returns the record whose ID is id or starts with id. An ambiguous
// prefix is an error.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrNotFound
	}
	if !validID(id) {
		return Record{}, fmt.Errorf("%q: %w", id, ErrInvalidID)
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, id+"*"+ext))
	if err != nil {
		return Record{}, err
	}
	switch len(matches) {
	case 0:
		return Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	case 1:
		return readRecord(matches[0])
	default:
		return Record{}, fmt.Errorf("%s: ambiguous, %d reports match", id, len(matches))
	}
}

// List returns every record, newest first. Unreadable files are skipped.
func (s *Store) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list()
}

func (s *Store) list() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		rec, err := readRecord(filepath.Join(s.dir, e.Name()))
		if err != nil || rec.Schema != schemaVersion {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out, nil
}

// Prune deletes all but the keep newest records and returns how many were
// removed.
func (s *Store) Prune(keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.list()
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := max(0, keep); i < len(recs); i++ {
		if err := os.Remove(s.pathFor(recs[i].ID)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// DropAll deletes every record.
func (s *Store) DropAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(s.dir, old); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// validID accepts uuid prefixes only: hex digits and dashes.
func validID(id string) bool {
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F', r == '-':
		default:
			return false
		}
	}
	return true
}

func readRecord(path string) (rec Record, err error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	err = msgpack.NewDecoder(f).Decode(&rec)
	return rec, err
}
