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

type SettingsStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSettingsStore(db *sql.DB, writer *dbpkg.Worker) *SettingsStore {
	return &SettingsStore{db: db, writer: writer}
}

func (s *SettingsStore) Load(ctx context.Context) (types.Settings, error) {
	var (
		out       types.Settings
		updatedMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT checkout_threshold_min, max_re_tags, updated_at_ms
FROM settings
WHERE settings_id = 1;
`).Scan(&out.CheckoutThreshold, &out.MaxReTags, &updatedMs)
	if err == sql.ErrNoRows {
		return types.Settings{}, store.ErrNotFound
	}
	if err != nil {
		return types.Settings{}, fmt.Errorf("Load settings: %w", err)
	}
	out.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return out, nil
}

func (s *SettingsStore) Save(ctx context.Context, v types.Settings) error {
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = time.Now().UTC()
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO settings(settings_id, checkout_threshold_min, max_re_tags, updated_at_ms)
VALUES (1, ?, ?, ?)
ON CONFLICT(settings_id) DO UPDATE SET
  checkout_threshold_min = excluded.checkout_threshold_min,
  max_re_tags            = excluded.max_re_tags,
  updated_at_ms          = excluded.updated_at_ms;
`, v.CheckoutThreshold, v.MaxReTags, v.UpdatedAt.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("Save settings: %w", err)
		}
		return nil
	})
}
