package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/felixbrock/promptstudio/internal/history"
	"github.com/felixbrock/promptstudio/internal/logger"
)

// MemoryStore keeps values for the life of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, history.ErrNotFound
	}

	return append([]byte(nil), value...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, key string, fn func([]byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current []byte
	if value, ok := s.data[key]; ok {
		current = append([]byte(nil), value...)
	}

	next, err := fn(current)

	if err != nil {
		return err
	}

	if next == nil {
		delete(s.data, key)
		return nil
	}
	s.data[key] = append([]byte(nil), next...)
	return nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileStore keeps one JSON file per key under Dir.
type FileStore struct {
	Dir string
	log *logger.Logger
}

func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if log == nil {
		log = logger.NewNop()
	}

	err := os.MkdirAll(dir, 0o700)

	if err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	return &FileStore{Dir: dir, log: log.With("component", "file_store")}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	content, err := os.ReadFile(s.path(key))

	if errors.Is(err, os.ErrNotExist) {
		return nil, history.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return content, nil
}

// Set writes to a temporary file and renames it over the old value, so a
// failed write never leaves a half-written log behind.
func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	file, err := os.CreateTemp(s.Dir, ".history-*")

	if err != nil {
		return err
	}

	tmp := file.Name()
	defer func() {
		err := os.Remove(tmp)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Error("Error occured", "error", err.Error())
		}
	}()

	_, err = file.Write(value)

	if err != nil {
		closeErr := file.Close()
		if closeErr != nil {
			s.log.Error("Error occured", "error", closeErr.Error())
		}
		return err
	}

	err = file.Close()

	if err != nil {
		return err
	}

	return os.Rename(tmp, s.path(key))
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}
