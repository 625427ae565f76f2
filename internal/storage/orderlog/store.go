// Package orderlog persists order attempts to a capped JSON log with a
// WAL-backed revision history for audit.
package orderlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"usdtdesk/internal/domain"
)

const (
	// MaxEntries caps the canonical log at the most recent entries.
	MaxEntries = 100

	walSegmentThreshold = 100
	walMaxSegments      = 10

	revisionKeyPrefix = "order_log_"
)

// Store is the durable append-only order log. The canonical file is a JSON
// array rewritten atomically on each append and capped at MaxEntries; every
// append is then recorded as a revision in a write-ahead log. A crash between
// file rewrite and revision write leaves the file updated but the revision
// unrecorded, which is acceptable: the log is advisory, not transactional.
//
// The store is guarded by a process-wide mutex; it is not safe against
// concurrent writer processes.
type Store struct {
	mu   sync.Mutex
	path string
	wal  *gowal.Wal
}

// NewStore opens (or creates) the log at path. historyDir holds the revision
// WAL and defaults to a "history" directory next to the log file.
func NewStore(path, historyDir string) (*Store, error) {
	if historyDir == "" {
		historyDir = filepath.Join(filepath.Dir(path), "history")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create order log dir")
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              historyDir,
		Prefix:           "revision_",
		SegmentThreshold: walSegmentThreshold,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init order log history")
	}

	return &Store{path: path, wal: wal}, nil
}

// Append adds an entry, truncates the log to the MaxEntries most recent,
// rewrites the file atomically and records a revision in the history WAL.
func (s *Store) Append(entry domain.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.loadLocked()
	entries = append(entries, entry)
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}

	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode order log")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write order log temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist order log")
	}

	record, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "encode log revision")
	}

	key := fmt.Sprintf("%s%s_%s", revisionKeyPrefix, entry.Timestamp.UTC().Format(time.RFC3339), entry.UUID)
	if err := s.wal.Write(s.wal.CurrentIndex()+1, key, record); err != nil {
		return errors.Wrap(err, "record log revision")
	}

	return nil
}

// Load returns the current log contents. A missing or corrupt file yields an
// empty slice, never an error.
func (s *Store) Load() []domain.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked()
}

func (s *Store) loadLocked() []domain.LogEntry {
	payload, err := os.ReadFile(s.path)
	if err != nil || len(payload) == 0 {
		return []domain.LogEntry{}
	}

	var entries []domain.LogEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return []domain.LogEntry{}
	}

	return entries
}

// Revision is one historical append as recorded in the WAL.
type Revision struct {
	Index uint64
	Key   string
	Entry domain.LogEntry
}

// RevisionsAfter returns the revisions written after the given WAL index.
func (s *Store) RevisionsAfter(index uint64) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	revisions := make([]Revision, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}

		var entry domain.LogEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, errors.Wrap(err, "decode log revision")
		}

		revisions = append(revisions, Revision{Index: idx, Key: key, Entry: entry})
	}

	return revisions, nil
}

// CurrentIndex returns the latest revision index stored.
func (s *Store) CurrentIndex() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.CurrentIndex()
}

// Close closes the revision WAL.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
