package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"medchain/core/block"
)

// FileStore keeps the chain as an indented JSON array in a single file.
// Saves go to a temp file in the same directory which is synced and then
// renamed over the snapshot.
type FileStore struct {
	path string
}

// NewFileStore returns a store for path, creating its directory.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create dir: %v", ErrPersistence, err)
	}
	return &FileStore{path: path}, nil
}

// OpenFileStore returns a store for an existing snapshot location without
// touching the filesystem. Use it for read-only access.
func OpenFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() ([]block.Block, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistence, s.path, err)
	}
	var chain []block.Block
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrPersistence, s.path, err)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: %s holds an empty chain", ErrPersistence, s.path)
	}
	return chain, nil
}

func (s *FileStore) Save(chain []block.Block) error {
	data, err := json.MarshalIndent(chain, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode chain: %v", ErrPersistence, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("%w: write temp: %v", ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%w: sync temp: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace snapshot: %v", ErrPersistence, err)
	}
	syncDir(filepath.Dir(s.path))
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// syncDir flushes the directory entry of a rename. Not every platform allows
// opening a directory for sync, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}
