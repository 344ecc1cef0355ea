// Package storage provides the key-value store adapters backing the
// session store and the cache-first fetcher.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/agriconnect/agriclient/internal/port/outbound"
)

// FileStore persists all keys in a single JSON document on disk. It
// provides atomic writes (write-tmp-fsync-then-rename) with 0600
// permissions and an in-process mutex; the whole document is rewritten
// on every Set, which is fine for the bounded entry counts this client
// keeps.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	doc    map[string]string
}

// NewFileStore creates a FileStore for the given file path. The file is
// created on first write.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:   path,
		logger: logger,
		doc:    make(map[string]string),
	}
}

// Get returns the value stored under key.
func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return "", false, err
	}
	v, ok := s.doc[key]
	return v, ok, nil
}

// Set stores value under key and rewrites the document atomically.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	s.doc[key] = value
	return s.saveLocked()
}

// Delete removes key. Deleting an absent key is not an error.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	if _, ok := s.doc[key]; !ok {
		return nil
	}
	delete(s.doc, key)
	return s.saveLocked()
}

// Path returns the configured file path.
func (s *FileStore) Path() string {
	return s.path
}

// loadLocked reads the document once. A missing file yields an empty
// document; a corrupt one is discarded with a warning rather than
// blocking the client.
func (s *FileStore) loadLocked() error {
	if s.loaded {
		return nil
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read storage file: %w", err)
	}
	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("storage file is corrupt, starting fresh", "path", s.path, "error", err)
		return nil
	}
	s.doc = doc
	return nil
}

// saveLocked writes the document to a temp file, fsyncs it, and renames
// it over the target path. On any error the temp file is cleaned up.
func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storage document: %w", err)
	}
	data = append(data, '\n')

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to storage file: %w", err)
	}
	return nil
}

// Compile-time interface verification.
var _ outbound.KeyValueStore = (*FileStore)(nil)
