package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDefaults inserts the default settings row when none exists so a
// fresh database classifies with known thresholds.
func SeedDefaults(ctx context.Context, db *sql.DB, checkoutThreshold, maxReTags int) error {
	now := time.Now().UTC().UnixMilli()
	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO settings(settings_id, checkout_threshold_min, max_re_tags, updated_at_ms)
VALUES (1, ?, ?, ?);`, checkoutThreshold, maxReTags, now); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}
