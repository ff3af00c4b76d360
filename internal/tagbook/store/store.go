package store

import (
	"context"
	"errors"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

var ErrNotFound = errors.New("not found")

// IdentityStore maps card UIDs to people.
type IdentityStore interface {
	Get(ctx context.Context, uid string) (types.Identity, error)
	Put(ctx context.Context, id types.Identity, at time.Time) error
}

// ScheduleStore is the read side of the reservation collaborator.  Entries
// are returned sorted by start time.
type ScheduleStore interface {
	EntriesBetween(ctx context.Context, personID string, role types.Role, from, to time.Time) ([]types.ScheduleEntry, error)
}

// SettingsStore holds the singleton settings row.  Load returns
// ErrNotFound when nothing has been saved yet.
type SettingsStore interface {
	Load(ctx context.Context) (types.Settings, error)
	Save(ctx context.Context, s types.Settings) error
}

// ReaderStore tracks tap sources.
type ReaderStore interface {
	MarkSeen(ctx context.Context, deviceID, deviceType string, t time.Time) error
	List(ctx context.Context) ([]types.Reader, error)
}
