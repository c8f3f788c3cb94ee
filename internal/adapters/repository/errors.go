package repository

import "errors"

// Sentinel errors for containment state persistence.
var (
	// ErrLoad is returned when persisted state exists but cannot be read.
	ErrLoad = errors.New("repository: load state")
	// ErrSave is returned when state cannot be persisted.
	ErrSave = errors.New("repository: save state")
	// ErrUnknownBackend is returned by Open for unsupported backends.
	ErrUnknownBackend = errors.New("repository: unknown backend")
)
