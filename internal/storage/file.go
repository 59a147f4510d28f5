package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every key in a single JSON document on disk.
// The whole document is rewritten on each mutation.
type FileStore struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

// OpenFile loads the document at path. A missing file yields an empty store.
func OpenFile(path string) (*FileStore, error) {
	fs := &FileStore{path: path}
	if err := fs.Load(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Load replaces the in-memory state with the contents of the file.
func (fs *FileStore) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.values = make(map[string]string)
			return nil
		}
		return fmt.Errorf("open storage file: %w", err)
	}
	defer f.Close()

	values := make(map[string]string)
	if err := json.NewDecoder(f).Decode(&values); err != nil {
		return fmt.Errorf("decode storage file: %w", err)
	}
	fs.values = values
	return nil
}

// save replaces the file with the current document via a temp file and rename.
// Callers must hold fs.mu.
func (fs *FileStore) save() error {
	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".storage-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if err := json.NewEncoder(tmp).Encode(fs.values); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("replace storage file: %w", err)
	}
	return nil
}

func (fs *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.values[key]
	return v, ok, nil
}

func (fs *FileStore) Set(_ context.Context, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.values[key] = value
	return fs.save()
}

func (fs *FileStore) Delete(_ context.Context, keys ...string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	changed := false
	for _, k := range keys {
		if _, ok := fs.values[k]; ok {
			delete(fs.values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return fs.save()
}
