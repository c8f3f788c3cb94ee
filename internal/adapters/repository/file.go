package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/zonewatch/internal/domain/state"
)

// FileStore keeps the state as a JSON object {vehicle: {zone: bool}}.
// Writes go to a temporary file that is renamed over the target.
type FileStore struct {
	path string
	mode os.FileMode
}

// NewFileStore returns a FileStore at path.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{path: path, mode: 0o644}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the state file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the state file. A missing file is not an error.
func (s *FileStore) Load(_ context.Context) (state.State, bool, error) {
	defer observe(BackendFile, "load", time.Now())

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return state.New(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	st := state.New()
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, true, fmt.Errorf("%w: %s: %w", ErrLoad, s.path, err)
	}
	if st == nil {
		st = state.New()
	}
	return st, true, nil
}

// Save writes st atomically.
func (s *FileStore) Save(_ context.Context, st state.State) error {
	defer observe(BackendFile, "save", time.Now())

	if st == nil {
		st = state.New()
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrSave, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write: %w", ErrSave, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync: %w", ErrSave, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrSave, err)
	}
	if err := os.Chmod(tmpName, s.mode); err != nil {
		return fmt.Errorf("%w: chmod: %w", ErrSave, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrSave, err)
	}
	return nil
}
