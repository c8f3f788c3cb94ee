// Package repository persists the containment state between passes.
package repository

import (
	"context"
	"time"

	"github.com/okian/zonewatch/internal/domain/state"
	"github.com/okian/zonewatch/pkg/metrics"
)

// Backend names.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Store loads and saves the containment state.
type Store interface {
	// Load returns the persisted state. found is false when nothing has
	// ever been saved, which marks the first run of a deployment.
	Load(ctx context.Context) (st state.State, found bool, err error)
	// Save replaces the persisted state.
	Save(ctx context.Context, st state.State) error
}

func observe(backend, op string, start time.Time) {
	metrics.RecordStateOperation(backend, op, float64(time.Since(start).Microseconds())/1000)
}
