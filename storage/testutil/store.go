package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/kbukum/amiprep/errors"
	"github.com/kbukum/amiprep/storage"
)

// Store is a storage.Storage backed by a map. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	files map[string]memFile

	// FailUploads, when set, is returned by Upload for matching paths.
	FailUploads func(path string) error
}

type memFile struct {
	data    []byte
	modTime time.Time
}

var _ storage.Storage = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{files: make(map[string]memFile)}
}

// Put stores data under path. Intended for fixture setup.
func (s *Store) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = memFile{data: append([]byte(nil), data...), modTime: time.Now()}
}

// Get returns a copy of the data stored under path.
func (s *Store) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), f.data...), true
}

// Keys returns every stored path in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of the store contents keyed by path.
func (s *Store) Snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string][]byte, len(s.files))
	for k, v := range s.files {
		snap[k] = append([]byte(nil), v.data...)
	}
	return snap
}

// Reset removes every object.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string]memFile)
}

// --- storage.Storage ---

func (s *Store) Upload(_ context.Context, path string, reader io.Reader) error {
	if s.FailUploads != nil {
		if err := s.FailUploads(path); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read upload data: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = memFile{data: data, modTime: time.Now()}
	return nil
}

func (s *Store) Download(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path]
	if !ok {
		return nil, apperrors.NotFound("object", path)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[path]
	return ok, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []storage.FileInfo{}
	for path, f := range s.files {
		if strings.HasPrefix(path, prefix) {
			result = append(result, storage.FileInfo{
				Path:         path,
				Size:         int64(len(f.data)),
				LastModified: f.modTime,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}
