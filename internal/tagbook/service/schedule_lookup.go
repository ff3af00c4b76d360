package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

type ScheduleLookup struct {
	store store.ScheduleStore
	loc   *time.Location
}

func NewScheduleLookup(st store.ScheduleStore, loc *time.Location) *ScheduleLookup {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleLookup{store: st, loc: loc}
}

// EntriesForToday returns the person's confirmed entries on the local day
// containing now, ordered by start time.  Staff and admins have none.
func (l *ScheduleLookup) EntriesForToday(ctx context.Context, personID string, role types.Role, now time.Time) ([]types.ScheduleEntry, error) {
	if role != types.RoleStudent && role != types.RoleTeacher {
		return nil, nil
	}
	from, to := dayBounds(now, l.loc)
	entries, err := l.store.EntriesBetween(ctx, personID, role, from, to)
	if err != nil {
		return nil, fmt.Errorf("schedule lookup: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].StartTime.Before(entries[j].StartTime) })
	return entries, nil
}

func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
