package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const tempSuffix = ".tmp"

func tempPattern(id int) string {
	return "." + ArtifactName(id) + ".*" + tempSuffix
}

// isTempName matches only names produced by tempPattern:
// ".<id>.png.<digits>.tmp"
func isTempName(name string) bool {
	if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, tempSuffix) {
		return false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, "."), tempSuffix)
	i := strings.LastIndex(rest, ".")
	if i < 0 {
		return false
	}
	random := rest[i+1:]
	if random == "" || strings.TrimLeft(random, "0123456789") != "" {
		return false
	}
	_, ok := parseArtifactName(rest[:i])
	return ok
}

// FileStore keeps artifacts as files in a local directory
type FileStore struct {
	dir   string
	known map[int]bool
	mu    sync.RWMutex
}

// NewFileStore creates dir if needed, indexes the artifacts already present
// and removes temp files left behind by an interrupted run
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &FileStore{
		dir:   dir,
		known: make(map[int]bool),
	}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("failed to scan output directory: %w", err)
	}
	return s, nil
}

func (s *FileStore) scan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if isTempName(name) {
			if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to remove stale temp file %s: %w", name, err)
			}
			continue
		}
		if id, ok := parseArtifactName(name); ok {
			s.known[id] = true
		}
	}
	return nil
}

// Exists always checks the filesystem, so artifacts added or removed by
// another process are honored. The index only backs Count.
func (s *FileStore) Exists(_ context.Context, id int) (bool, error) {
	_, err := os.Stat(s.Location(id))
	switch {
	case err == nil:
		s.mu.Lock()
		s.known[id] = true
		s.mu.Unlock()
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		s.mu.Lock()
		delete(s.known, id)
		s.mu.Unlock()
		return false, nil
	default:
		return false, err
	}
}

// Save writes to a temp file in the same directory and renames it into
// place once the data is synced
func (s *FileStore) Save(_ context.Context, id int, data []byte) error {
	final := s.Location(id)

	tmp, err := os.CreateTemp(s.dir, tempPattern(id))
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write image data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync image data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	s.mu.Lock()
	s.known[id] = true
	s.mu.Unlock()
	return nil
}

// Location returns the artifact path for id
func (s *FileStore) Location(id int) string {
	return filepath.Join(s.dir, ArtifactName(id))
}

// Dir returns the output directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Count returns the number of artifacts seen so far
func (s *FileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.known)
}

func (s *FileStore) Close() error {
	return nil
}
