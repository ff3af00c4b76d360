package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/tagbook/internal/db"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// ScheduleStore reads confirmed reservations.  AddReservation exists for
// seeding; the tagging engine only reads.
type ScheduleStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewScheduleStore(db *sql.DB, writer *dbpkg.Worker) *ScheduleStore {
	return &ScheduleStore{db: db, writer: writer}
}

func (s *ScheduleStore) EntriesBetween(ctx context.Context, personID string, role types.Role, from, to time.Time) ([]types.ScheduleEntry, error) {
	var q string
	switch role {
	case types.RoleStudent:
		q = `
SELECT teacher_id, start_at_ms, end_at_ms
FROM reservations
WHERE student_id = ? AND confirmed = 1 AND start_at_ms >= ? AND start_at_ms < ?
ORDER BY start_at_ms ASC, reservation_id ASC;`
	case types.RoleTeacher:
		q = `
SELECT student_id, start_at_ms, end_at_ms
FROM reservations
WHERE teacher_id = ? AND confirmed = 1 AND start_at_ms >= ? AND start_at_ms < ?
ORDER BY start_at_ms ASC, reservation_id ASC;`
	default:
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, q, personID, from.UTC().UnixMilli(), to.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("EntriesBetween query: %w", err)
	}
	defer rows.Close()

	var out []types.ScheduleEntry
	for rows.Next() {
		var (
			counterparty   string
			startMs, endMs int64
		)
		if err := rows.Scan(&counterparty, &startMs, &endMs); err != nil {
			return nil, fmt.Errorf("EntriesBetween scan: %w", err)
		}
		start := time.UnixMilli(startMs).In(from.Location())
		out = append(out, types.ScheduleEntry{
			PersonID:       personID,
			Date:           start.Format(time.DateOnly),
			StartTime:      start,
			EndTime:        time.UnixMilli(endMs).In(from.Location()),
			CounterpartyID: counterparty,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("EntriesBetween rows: %w", err)
	}
	return out, nil
}

func (s *ScheduleStore) AddReservation(ctx context.Context, r types.Reservation) error {
	confirmed := 0
	if r.Confirmed {
		confirmed = 1
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO reservations(student_id, teacher_id, start_at_ms, end_at_ms, confirmed, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?);
`, r.StudentID, r.TeacherID, r.StartAt.UTC().UnixMilli(), r.EndAt.UTC().UnixMilli(),
			confirmed, time.Now().UTC().UnixMilli()); err != nil {
			return fmt.Errorf("AddReservation: %w", err)
		}
		return nil
	})
}
