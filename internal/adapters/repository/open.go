package repository

import (
	"database/sql"
	"fmt"
	"strings"
)

// Config selects and parameterises a backend for Open.
type Config struct {
	Backend string
	Path    string
	DB      *sql.DB
}

// Open returns the Store for cfg.Backend.
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: file backend needs a path", ErrUnknownBackend)
		}
		return NewFileStore(cfg.Path), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendPostgres:
		if cfg.DB == nil {
			return nil, fmt.Errorf("%w: postgres backend needs a database", ErrUnknownBackend)
		}
		return NewPostgresStore(cfg.DB), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
