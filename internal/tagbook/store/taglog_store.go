package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// TagLogStore persists tag logs and their points as an append-only audit
// log.  Append writes the log and the optional ledger entry atomically and
// returns both with ids assigned.
type TagLogStore interface {
	Append(ctx context.Context, rec types.TagLog, points *types.PointsLedgerEntry) (types.TagLog, *types.PointsLedgerEntry, error)
	Get(ctx context.Context, id int64) (types.TagLog, error)
	Query(ctx context.Context, f types.TagLogFilter, p types.Page) ([]types.TagLog, int, error)
	// LastCheckIn returns the newest checked-in event (attendance,
	// re_attendance, present, late or early) for uid at or after since, or
	// ErrNotFound.
	LastCheckIn(ctx context.Context, uid string, since time.Time) (types.TagLog, error)
	// Corrections returns the records whose CorrectsID is rootID, oldest
	// first.
	Corrections(ctx context.Context, rootID int64) ([]types.TagLog, error)
	CountForUID(ctx context.Context, uid string) (int, error)
	Points(ctx context.Context, personID string) ([]types.PointsLedgerEntry, error)
}
