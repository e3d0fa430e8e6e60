package kv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/logger"
)

// fileData is the on-disk layout.
type fileData struct {
	Version    int                  `json:"version"`
	UpdatedAt  string               `json:"updated_at"`
	Namespaces map[string]namespace `json:"namespaces"`
}

const (
	fileVersion   = 1
	corruptSuffix = ".corrupt"
)

// FileStore keeps every namespace in one JSON file, rewritten atomically.
type FileStore struct {
	base
	path string
}

// NewFileStore opens (or prepares to create) the store at path. A file that
// does not parse is moved to path+".corrupt" and the store starts empty.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	s := &FileStore{path: path}
	s.be = s
	s.all = map[string]namespace{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	var stored fileData
	if err := json.Unmarshal(data, &stored); err != nil {
		log := logger.For("KV")
		log.Warn("failed to parse store %s: %v; starting empty", path, err)
		if err := os.Rename(path, path+corruptSuffix); err != nil {
			log.Warn("failed to set aside %s: %v", path, err)
		}
		return s, nil
	}
	if stored.Namespaces != nil {
		s.all = stored.Namespaces
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) persist(all map[string]namespace) error {
	data, err := json.MarshalIndent(fileData{
		Version:    fileVersion,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
		Namespaces: all,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// MemoryStore keeps namespaces in memory only.
type MemoryStore struct {
	base
	failWith error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.be = s
	s.all = map[string]namespace{}
	return s
}

// FailCommits makes every later Commit return err, simulating an unavailable
// flash partition. A nil err restores normal behavior.
func (s *MemoryStore) FailCommits(err error) {
	s.mu.Lock()
	s.failWith = err
	s.mu.Unlock()
}

// persist runs with mu held.
func (s *MemoryStore) persist(map[string]namespace) error {
	return s.failWith
}
