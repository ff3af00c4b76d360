package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

type IdentityStore struct {
	mu  sync.RWMutex
	ids map[string]types.Identity
}

func NewIdentityStore(seed ...types.Identity) *IdentityStore {
	s := &IdentityStore{ids: make(map[string]types.Identity, len(seed))}
	for _, id := range seed {
		id.UID = strings.TrimSpace(id.UID)
		if id.UID != "" {
			s.ids[id.UID] = id
		}
	}
	return s
}

func (s *IdentityStore) Get(_ context.Context, uid string) (types.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[uid]
	if !ok {
		return types.Identity{}, store.ErrNotFound
	}
	return id, nil
}

func (s *IdentityStore) Put(_ context.Context, id types.Identity, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id.UID] = id
	return nil
}
