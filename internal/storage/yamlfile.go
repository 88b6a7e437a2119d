// Package storage persists small collections as YAML documents on disk.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// YAMLFile stores a single value of type T in a YAML file.
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so readers never observe a partial document.
type YAMLFile[T any] struct {
	path string
	mu   sync.Mutex
}

// NewYAMLFile returns a store backed by path
func NewYAMLFile[T any](path string) *YAMLFile[T] {
	return &YAMLFile[T]{path: path}
}

// Path returns the file location
func (f *YAMLFile[T]) Path() string {
	return f.path
}

// Load reads the stored value. found is false when the file does not exist.
func (f *YAMLFile[T]) Load() (value T, found bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return value, false, nil
		}
		return value, false, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return value, true, nil
	}

	if err := yaml.Unmarshal(data, &value); err != nil {
		return value, false, fmt.Errorf("failed to parse %s: %w", f.path, err)
	}

	return value, true, nil
}

// Save replaces the stored value atomically
func (f *YAMLFile[T]) Save(value T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(f.path), err)
	}

	return WriteFileAtomic(f.path, data, 0644)
}

// WriteFileAtomic replaces path with data. The temp file lives next to path
// and both it and the directory are synced before returning.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := renameio.WriteFile(path, data, perm, renameio.WithTempDir(dir)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
