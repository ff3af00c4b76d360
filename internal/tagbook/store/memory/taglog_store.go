package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// TagLogStore is an in-memory append-only log of tag events and points.
// It is intended for use in tests and dev environments.
type TagLogStore struct {
	mu     sync.Mutex
	logs   []types.TagLog
	points []types.PointsLedgerEntry
	failAt error
}

func NewTagLogStore() *TagLogStore {
	return &TagLogStore{}
}

// FailAppends makes every subsequent Append return err (nil restores).
// Test-only helper.
func (s *TagLogStore) FailAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAt = err
}

func (s *TagLogStore) Append(_ context.Context, rec types.TagLog, pts *types.PointsLedgerEntry) (types.TagLog, *types.PointsLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt != nil {
		return types.TagLog{}, nil, s.failAt
	}

	rec.ID = int64(len(s.logs) + 1)
	s.logs = append(s.logs, rec)

	if pts == nil {
		return rec, nil, nil
	}
	entry := *pts
	entry.ID = int64(len(s.points) + 1)
	entry.TagLogID = rec.ID
	s.points = append(s.points, entry)
	return rec, &entry, nil
}

func (s *TagLogStore) Get(_ context.Context, id int64) (types.TagLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || int(id) > len(s.logs) {
		return types.TagLog{}, store.ErrNotFound
	}
	return s.logs[id-1], nil
}

func (s *TagLogStore) Query(_ context.Context, f types.TagLogFilter, p types.Page) ([]types.TagLog, int, error) {
	s.mu.Lock()
	matched := make([]types.TagLog, 0)
	for _, l := range s.logs {
		if matches(l, f) {
			matched = append(matched, l)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].OccurredAt.After(matched[j].OccurredAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	p = p.Normalize()
	start := p.Offset()
	if start >= total {
		return []types.TagLog{}, total, nil
	}
	end := start + p.Size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *TagLogStore) LastCheckIn(_ context.Context, uid string, since time.Time) (types.TagLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  types.TagLog
		found bool
	)
	for _, l := range s.logs {
		if l.UID != uid || !l.EventType.CheckedIn() || l.OccurredAt.Before(since) {
			continue
		}
		if !found || !l.OccurredAt.Before(best.OccurredAt) {
			best, found = l, true
		}
	}
	if !found {
		return types.TagLog{}, store.ErrNotFound
	}
	return best, nil
}

func (s *TagLogStore) Corrections(_ context.Context, rootID int64) ([]types.TagLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.TagLog, 0)
	for _, l := range s.logs {
		if l.CorrectsID != nil && *l.CorrectsID == rootID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *TagLogStore) CountForUID(_ context.Context, uid string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.logs {
		if l.UID == uid {
			n++
		}
	}
	return n, nil
}

func (s *TagLogStore) Points(_ context.Context, personID string) ([]types.PointsLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.PointsLedgerEntry, 0)
	for _, e := range s.points {
		if e.PersonID == personID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Logs returns a copy of all appended logs in insertion order.  Test-only
// helper.
func (s *TagLogStore) Logs() []types.TagLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.TagLog, len(s.logs))
	copy(out, s.logs)
	return out
}

func matches(l types.TagLog, f types.TagLogFilter) bool {
	if f.UID != "" && l.UID != f.UID {
		return false
	}
	if f.From != nil && l.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !l.OccurredAt.Before(*f.To) {
		return false
	}
	if len(f.EventTypes) == 0 {
		return true
	}
	for _, t := range f.EventTypes {
		if l.EventType == t {
			return true
		}
	}
	return false
}
