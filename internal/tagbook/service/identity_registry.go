package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

type IdentityRegistry struct {
	store store.IdentityStore
	logs  store.TagLogStore
	now   func() time.Time
}

func NewIdentityRegistry(st store.IdentityStore, logs store.TagLogStore) *IdentityRegistry {
	return &IdentityRegistry{store: st, logs: logs, now: time.Now}
}

// Resolve maps a UID to its identity.  It is read-only and safe for
// concurrent use.
func (r *IdentityRegistry) Resolve(ctx context.Context, uid string) (types.Identity, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return types.Identity{}, invalid("uid is required")
	}
	id, err := r.store.Get(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return types.Identity{}, newError(CodeUIDNotRegistered, fmt.Errorf("uid not registered"))
	}
	if err != nil {
		return types.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	return id, nil
}

// Register binds a UID to a person.  A UID that already has tag logs is
// immutable unless req.Force is set.
func (r *IdentityRegistry) Register(ctx context.Context, req types.RegisterIdentityRequest) (types.Identity, error) {
	id := req.Identity
	id.UID = strings.TrimSpace(id.UID)
	id.PersonID = strings.TrimSpace(id.PersonID)
	id.DisplayName = strings.TrimSpace(id.DisplayName)
	if err := validateStruct(id); err != nil {
		return types.Identity{}, err
	}

	existing, err := r.store.Get(ctx, id.UID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return types.Identity{}, fmt.Errorf("register lookup: %w", err)
	case existing == id:
		return existing, nil
	case !req.Force:
		n, err := r.logs.CountForUID(ctx, id.UID)
		if err != nil {
			return types.Identity{}, fmt.Errorf("register tap count: %w", err)
		}
		if n > 0 {
			return types.Identity{}, newError(CodeUIDAlreadyRegistered,
				fmt.Errorf("uid has %d tag logs; re-registration needs force", n))
		}
	}

	if err := r.store.Put(ctx, id, r.now().UTC()); err != nil {
		return types.Identity{}, fmt.Errorf("register put: %w", err)
	}
	return id, nil
}
