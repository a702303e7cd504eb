// Package storage provides named byte sources and sinks for transfers.
package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Store opens named files for reading or writing. A source or sink returned
// by a Store is owned exclusively by one transfer for its lifetime.
type Store interface {
	Get(name string) (io.ReadCloser, error)
	Put(name string) (io.WriteCloser, error)
}

// FileStore serves files from a root directory. Names are cleaned relative
// to the root, so a request cannot escape it.
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at the given directory.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" {
		return "", errors.Wrap(ErrEmptyPath, "filename cannot be empty")
	}
	return filepath.Join(s.root, filepath.Clean("/"+name)), nil
}

// Get opens the named file for reading.
func (s *FileStore) Get(name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	switch {
	case err == nil:
		return f, nil
	case os.IsNotExist(err):
		return nil, errors.Wrapf(ErrNotFound, "open %s", name)
	case os.IsPermission(err):
		return nil, errors.Wrapf(ErrAccessViolation, "open %s", name)
	}
	return nil, errors.Wrap(err, "open file failed")
}

// Put creates the named file for writing. An existing file is never replaced.
func (s *FileStore) Put(name string) (io.WriteCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	switch {
	case err == nil:
		return f, nil
	case os.IsExist(err):
		return nil, errors.Wrapf(ErrAlreadyExists, "create %s", name)
	case os.IsPermission(err):
		return nil, errors.Wrapf(ErrAccessViolation, "create %s", name)
	}
	return nil, errors.Wrap(err, "create file failed")
}

// MemoryStore keeps files in memory. It is used in tests and for serving
// ephemeral content.
type MemoryStore struct {
	files map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files: make(map[string][]byte),
	}
}

// Add seeds the store with a file, replacing any previous content.
func (s *MemoryStore) Add(name string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), content...)
}

// Get opens the named file for reading.
func (s *MemoryStore) Get(name string) (io.ReadCloser, error) {
	if name == "" {
		return nil, errors.Wrap(ErrEmptyPath, "filename cannot be empty")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "open %s", name)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// Put reserves the named file and returns a sink whose content becomes
// visible when closed.
func (s *MemoryStore) Put(name string) (io.WriteCloser, error) {
	if name == "" {
		return nil, errors.Wrap(ErrEmptyPath, "filename cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "create %s", name)
	}
	s.files[name] = nil
	return &memoryFile{store: s, name: name}, nil
}

type memoryFile struct {
	store *MemoryStore
	name  string
	buf   bytes.Buffer
}

func (f *memoryFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *memoryFile) Close() error {
	f.store.Add(f.name, f.buf.Bytes())
	return nil
}
