package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists contacts as a JSON list in a single local file, using
// the same write-temp-then-rename discipline as the incident queue.
//
// Thread-safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Add implements [Store.Add].
func (s *FileStore) Add(ctx context.Context, c Contact) (Contact, error) {
	if err := ctx.Err(); err != nil {
		return Contact{}, err
	}
	if err := c.Validate(); err != nil {
		return Contact{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	list, err := s.load()
	if err != nil {
		return Contact{}, err
	}
	list = append(list, c)
	if err := s.save(list); err != nil {
		return Contact{}, err
	}
	return c, nil
}

// List implements [Store.List].
func (s *FileStore) List(ctx context.Context) ([]Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update implements [Store.Update].
func (s *FileStore) Update(ctx context.Context, c Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == c.ID {
			list[i] = c
			return s.save(list)
		}
	}
	return fmt.Errorf("contact: update %q: %w", c.ID, ErrNotFound)
}

// Delete implements [Store.Delete].
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			list = append(list[:i], list[i+1:]...)
			return s.save(list)
		}
	}
	return fmt.Errorf("contact: delete %q: %w", id, ErrNotFound)
}

// Primary implements [Store.Primary].
func (s *FileStore) Primary(ctx context.Context) (Contact, error) {
	if err := ctx.Err(); err != nil {
		return Contact{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return Contact{}, err
	}
	if len(list) == 0 {
		return Contact{}, ErrNotFound
	}
	for _, c := range list {
		if c.IsPrimary {
			return c, nil
		}
	}
	return list[0], nil
}

// load reads and decodes the contact file. Must be called with s.mu held.
func (s *FileStore) load() ([]Contact, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("contact: read %q: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var list []Contact
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("contact: decode %q: %w", s.path, err)
	}
	return list, nil
}

// save atomically replaces the contact file. Must be called with s.mu held.
func (s *FileStore) save(list []Contact) error {
	if list == nil {
		list = []Contact{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("contact: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("contact: create dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".contacts-*.json")
	if err != nil {
		return fmt.Errorf("contact: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("contact: write %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("contact: close %q: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("contact: replace %q: %w", s.path, err)
	}
	return nil
}
