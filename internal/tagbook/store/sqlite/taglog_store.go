package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/tagbook/internal/db"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

type TagLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewTagLogStore(db *sql.DB, writer *dbpkg.Worker) *TagLogStore {
	return &TagLogStore{db: db, writer: writer}
}

const tagLogColumns = `tag_log_id, uid, person_id, role, event_type, occurred_at_ms,
  device_id, device_type, device_time_ms, points_awarded, tap_id, corrects_id, note`

// Append inserts the tag log and, when pts is non-nil, its ledger entry in
// one transaction.
func (s *TagLogStore) Append(ctx context.Context, rec types.TagLog, pts *types.PointsLedgerEntry) (types.TagLog, *types.PointsLedgerEntry, error) {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}

	var deviceTime any
	if rec.DeviceTime != nil {
		deviceTime = rec.DeviceTime.UTC().UnixMilli()
	}
	var points any
	if rec.PointsAwarded != nil {
		points = *rec.PointsAwarded
	}
	var tapID any
	if rec.TapID != "" {
		tapID = rec.TapID
	}
	var corrects any
	if rec.CorrectsID != nil {
		corrects = *rec.CorrectsID
	}

	var entry *types.PointsLedgerEntry
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO tag_logs(
  uid, person_id, role, event_type, occurred_at_ms,
  device_id, device_type, device_time_ms, points_awarded, tap_id, corrects_id, note
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.UID, rec.PersonID, string(rec.Role), string(rec.EventType), rec.OccurredAt.UTC().UnixMilli(),
			rec.DeviceID, rec.DeviceType, deviceTime, points, tapID, corrects, rec.Note,
		)
		if err != nil {
			return fmt.Errorf("Append insert tag_log: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Append tag_log id: %w", err)
		}
		rec.ID = id

		if pts == nil {
			return nil
		}
		e := *pts
		e.TagLogID = id
		if e.OccurredAt.IsZero() {
			e.OccurredAt = rec.OccurredAt
		}
		res, err = tx.ExecContext(ctx, `
INSERT INTO points_ledger(person_id, delta, tag_log_id, occurred_at_ms)
VALUES (?, ?, ?, ?);
`, e.PersonID, e.Delta, e.TagLogID, e.OccurredAt.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("Append insert points: %w", err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("Append points id: %w", err)
		}
		entry = &e
		return nil
	})
	if err != nil {
		return types.TagLog{}, nil, err
	}
	return rec, entry, nil
}

func (s *TagLogStore) Get(ctx context.Context, id int64) (types.TagLog, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagLogColumns+` FROM tag_logs WHERE tag_log_id = ?;`, id)
	l, err := scanTagLog(row)
	if err == sql.ErrNoRows {
		return types.TagLog{}, store.ErrNotFound
	}
	if err != nil {
		return types.TagLog{}, fmt.Errorf("Get tag_log: %w", err)
	}
	return l, nil
}

func (s *TagLogStore) Query(ctx context.Context, f types.TagLogFilter, p types.Page) ([]types.TagLog, int, error) {
	p = p.Normalize()
	where, args := filterClause(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tag_logs`+where+`;`, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("Query count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+tagLogColumns+` FROM tag_logs`+where+`
ORDER BY occurred_at_ms DESC, tag_log_id DESC
LIMIT ? OFFSET ?;`, append(args, p.Size, p.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("Query tag_logs: %w", err)
	}
	defer rows.Close()

	out := make([]types.TagLog, 0, p.Size)
	for rows.Next() {
		l, err := scanTagLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("Query scan: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("Query rows: %w", err)
	}
	return out, total, nil
}

func (s *TagLogStore) LastCheckIn(ctx context.Context, uid string, since time.Time) (types.TagLog, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagLogColumns+` FROM tag_logs
WHERE uid = ? AND occurred_at_ms >= ?
  AND event_type IN ('attendance','re_attendance','present','late','early')
ORDER BY occurred_at_ms DESC, tag_log_id DESC
LIMIT 1;`, uid, since.UTC().UnixMilli())
	l, err := scanTagLog(row)
	if err == sql.ErrNoRows {
		return types.TagLog{}, store.ErrNotFound
	}
	if err != nil {
		return types.TagLog{}, fmt.Errorf("LastCheckIn: %w", err)
	}
	return l, nil
}

func (s *TagLogStore) Corrections(ctx context.Context, rootID int64) ([]types.TagLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tagLogColumns+` FROM tag_logs
WHERE corrects_id = ?
ORDER BY tag_log_id ASC;`, rootID)
	if err != nil {
		return nil, fmt.Errorf("Corrections query: %w", err)
	}
	defer rows.Close()

	out := make([]types.TagLog, 0)
	for rows.Next() {
		l, err := scanTagLog(rows)
		if err != nil {
			return nil, fmt.Errorf("Corrections scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *TagLogStore) CountForUID(ctx context.Context, uid string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tag_logs WHERE uid = ?;`, uid).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountForUID: %w", err)
	}
	return n, nil
}

func (s *TagLogStore) Points(ctx context.Context, personID string) ([]types.PointsLedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT entry_id, person_id, delta, tag_log_id, occurred_at_ms
FROM points_ledger
WHERE person_id = ?
ORDER BY occurred_at_ms ASC, entry_id ASC;
`, personID)
	if err != nil {
		return nil, fmt.Errorf("Points query: %w", err)
	}
	defer rows.Close()

	out := make([]types.PointsLedgerEntry, 0)
	for rows.Next() {
		var (
			e  types.PointsLedgerEntry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.PersonID, &e.Delta, &e.TagLogID, &ms); err != nil {
			return nil, fmt.Errorf("Points scan: %w", err)
		}
		e.OccurredAt = time.UnixMilli(ms).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func filterClause(f types.TagLogFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UID != "" {
		conds = append(conds, "uid = ?")
		args = append(args, f.UID)
	}
	if f.From != nil {
		conds = append(conds, "occurred_at_ms >= ?")
		args = append(args, f.From.UTC().UnixMilli())
	}
	if f.To != nil {
		conds = append(conds, "occurred_at_ms < ?")
		args = append(args, f.To.UTC().UnixMilli())
	}
	if len(f.EventTypes) > 0 {
		marks := make([]string, len(f.EventTypes))
		for i, t := range f.EventTypes {
			marks[i] = "?"
			args = append(args, string(t))
		}
		conds = append(conds, "event_type IN ("+strings.Join(marks, ",")+")")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\nWHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTagLog(r rowScanner) (types.TagLog, error) {
	var (
		l                    types.TagLog
		role, eventType      string
		occurredMs           int64
		deviceTimeMs, points sql.NullInt64
		tapID                sql.NullString
		corrects             sql.NullInt64
	)
	if err := r.Scan(&l.ID, &l.UID, &l.PersonID, &role, &eventType, &occurredMs,
		&l.DeviceID, &l.DeviceType, &deviceTimeMs, &points, &tapID, &corrects, &l.Note); err != nil {
		return types.TagLog{}, err
	}
	l.Role = types.Role(role)
	l.EventType = types.EventType(eventType)
	l.OccurredAt = time.UnixMilli(occurredMs).UTC()
	if deviceTimeMs.Valid {
		t := time.UnixMilli(deviceTimeMs.Int64).UTC()
		l.DeviceTime = &t
	}
	if points.Valid {
		v := int(points.Int64)
		l.PointsAwarded = &v
	}
	if tapID.Valid {
		l.TapID = tapID.String
	}
	if corrects.Valid {
		v := corrects.Int64
		l.CorrectsID = &v
	}
	return l, nil
}
