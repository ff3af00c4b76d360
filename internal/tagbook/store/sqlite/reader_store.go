package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/tagbook/internal/db"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

type ReaderStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewReaderStore(db *sql.DB, writer *dbpkg.Worker) *ReaderStore {
	return &ReaderStore{db: db, writer: writer}
}

// MarkSeen ensures a reader row exists and bumps last_seen.  An empty
// deviceType keeps whatever type was recorded before.
func (s *ReaderStore) MarkSeen(ctx context.Context, deviceID, deviceType string, t time.Time) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO readers(device_id, device_type, first_seen_at_ms, last_seen_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(device_id) DO UPDATE SET
  device_type     = CASE WHEN excluded.device_type = '' THEN readers.device_type ELSE excluded.device_type END,
  last_seen_at_ms = excluded.last_seen_at_ms;
`, deviceID, deviceType, ms, ms); err != nil {
			return fmt.Errorf("MarkSeen reader: %w", err)
		}
		return nil
	})
}

func (s *ReaderStore) List(ctx context.Context) ([]types.Reader, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT device_id, device_type, first_seen_at_ms, last_seen_at_ms
FROM readers
ORDER BY device_id ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("List readers: %w", err)
	}
	defer rows.Close()

	out := make([]types.Reader, 0)
	for rows.Next() {
		var (
			r           types.Reader
			first, last int64
		)
		if err := rows.Scan(&r.DeviceID, &r.DeviceType, &first, &last); err != nil {
			return nil, fmt.Errorf("List readers scan: %w", err)
		}
		r.FirstSeenAt = time.UnixMilli(first).UTC()
		r.LastSeenAt = time.UnixMilli(last).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
