package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

type SettingsStore struct {
	mu    sync.Mutex
	saved *types.Settings
	loads int
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{}
}

func (s *SettingsStore) Load(_ context.Context) (types.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.saved == nil {
		return types.Settings{}, store.ErrNotFound
	}
	return *s.saved, nil
}

func (s *SettingsStore) Save(_ context.Context, v types.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = &v
	return nil
}

// Loads reports how many times Load was called.  Test-only helper.
func (s *SettingsStore) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}
