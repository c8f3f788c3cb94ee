package repository

import (
	"context"
	"sync"

	"github.com/okian/zonewatch/internal/domain/state"
)

// MemoryStore keeps the state in process. Loads and saves copy the state so
// callers never share the stored map.
type MemoryStore struct {
	mu    sync.RWMutex
	st    state.State
	saved bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the last saved state.
func (s *MemoryStore) Load(_ context.Context) (state.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Clone(), s.saved, nil
}

// Save stores a copy of st.
func (s *MemoryStore) Save(_ context.Context, st state.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = st.Clone()
	s.saved = true
	return nil
}
