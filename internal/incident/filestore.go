package incident

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists the incident queue as a JSON list in a single local
// file. Writes go to a temp file in the same directory followed by a rename,
// so a crash mid-write leaves the previous state intact.
//
// Thread-safe for concurrent use.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFileStore creates a FileStore backed by the file at path. The file and
// its parent directory are created on first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append implements [Store.Append].
func (s *FileStore) Append(ctx context.Context, inc Incident) (Incident, error) {
	if err := ctx.Err(); err != nil {
		return Incident{}, err
	}
	if !inc.Type.IsValid() {
		return Incident{}, fmt.Errorf("incident: invalid type %q", inc.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Incident{}, ErrStoreClosed
	}

	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	if inc.Timestamp.IsZero() {
		inc.Timestamp = time.Now().UTC()
	}

	list, err := s.load()
	if err != nil {
		return Incident{}, err
	}
	list = append(list, inc)
	if err := s.save(list); err != nil {
		return Incident{}, err
	}
	return inc, nil
}

// PendingCount implements [Store.PendingCount].
func (s *FileStore) PendingCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	list, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Drain implements [Store.Drain].
func (s *FileStore) Drain(ctx context.Context) ([]Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.load()
}

// Remove implements [Store.Remove].
func (s *FileStore) Remove(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	list, err := s.load()
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, inc := range list {
		if _, gone := drop[inc.ID]; !gone {
			kept = append(kept, inc)
		}
	}
	if len(kept) == len(list) {
		// Nothing matched; avoid a pointless rewrite.
		return nil
	}
	return s.save(kept)
}

// ClearAll implements [Store.ClearAll].
func (s *FileStore) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.save(nil)
}

// Close marks the store closed. Subsequent operations return ErrStoreClosed.
// Safe to call multiple times.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// load reads and decodes the queue file. A missing file is an empty queue.
// Must be called with s.mu held.
func (s *FileStore) load() ([]Incident, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("incident: read %q: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var list []Incident
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("incident: decode %q: %w", s.path, err)
	}
	return list, nil
}

// save encodes list and atomically replaces the queue file.
// Must be called with s.mu held.
func (s *FileStore) save(list []Incident) error {
	if list == nil {
		list = []Incident{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("incident: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("incident: create dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".incidents-*.json")
	if err != nil {
		return fmt.Errorf("incident: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("incident: write %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("incident: close %q: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("incident: replace %q: %w", s.path, err)
	}
	return nil
}
