package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/tagbook/internal/db"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

type IdentityStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewIdentityStore(db *sql.DB, writer *dbpkg.Worker) *IdentityStore {
	return &IdentityStore{db: db, writer: writer}
}

func (s *IdentityStore) Get(ctx context.Context, uid string) (types.Identity, error) {
	var (
		id   types.Identity
		role string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT uid, person_id, role, display_name
FROM identities
WHERE uid = ?;
`, uid).Scan(&id.UID, &id.PersonID, &role, &id.DisplayName)
	if err == sql.ErrNoRows {
		return types.Identity{}, store.ErrNotFound
	}
	if err != nil {
		return types.Identity{}, fmt.Errorf("Get identity: %w", err)
	}
	id.Role = types.Role(role)
	return id, nil
}

// Put inserts or replaces the identity bound to id.UID.  The original
// registration time is kept on replace.
func (s *IdentityStore) Put(ctx context.Context, id types.Identity, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	ms := at.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO identities(uid, person_id, role, display_name, registered_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(uid) DO UPDATE SET
  person_id     = excluded.person_id,
  role          = excluded.role,
  display_name  = excluded.display_name,
  updated_at_ms = excluded.updated_at_ms;
`, id.UID, id.PersonID, string(id.Role), id.DisplayName, ms, ms); err != nil {
			return fmt.Errorf("Put identity: %w", err)
		}
		return nil
	})
}
