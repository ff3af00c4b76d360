package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// ScheduleStore serves schedule entries from a fixed set of reservations.
type ScheduleStore struct {
	mu           sync.RWMutex
	reservations []types.Reservation
}

func NewScheduleStore(rs ...types.Reservation) *ScheduleStore {
	return &ScheduleStore{reservations: append([]types.Reservation(nil), rs...)}
}

func (s *ScheduleStore) Add(rs ...types.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations = append(s.reservations, rs...)
}

func (s *ScheduleStore) AddReservation(_ context.Context, r types.Reservation) error {
	s.Add(r)
	return nil
}

func (s *ScheduleStore) EntriesBetween(_ context.Context, personID string, role types.Role, from, to time.Time) ([]types.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.ScheduleEntry
	for _, r := range s.reservations {
		if !r.Confirmed || r.StartAt.Before(from) || !r.StartAt.Before(to) {
			continue
		}
		var counterparty string
		switch {
		case role == types.RoleStudent && r.StudentID == personID:
			counterparty = r.TeacherID
		case role == types.RoleTeacher && r.TeacherID == personID:
			counterparty = r.StudentID
		default:
			continue
		}
		out = append(out, types.ScheduleEntry{
			PersonID:       personID,
			Date:           r.StartAt.In(from.Location()).Format(time.DateOnly),
			StartTime:      r.StartAt,
			EndTime:        r.EndAt,
			CounterpartyID: counterparty,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}
