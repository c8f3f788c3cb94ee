package repository

import "os"

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileMode sets the permission bits of the state file.
func WithFileMode(mode os.FileMode) FileOption {
	return func(s *FileStore) {
		if mode != 0 {
			s.mode = mode
		}
	}
}
