package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/events/eventstest"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/service"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store/memory"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

var (
	student = types.Identity{UID: "card-s", PersonID: "stu-1", Role: types.RoleStudent, DisplayName: "Sora"}
	teacher = types.Identity{UID: "card-t", PersonID: "tch-1", Role: types.RoleTeacher, DisplayName: "Tomo"}
	staff   = types.Identity{UID: "card-u", PersonID: "stf-1", Role: types.RoleStaff, DisplayName: "Umi"}
	admin   = types.Identity{UID: "card-a", PersonID: "adm-1", Role: types.RoleAdmin, DisplayName: "Aki"}
)

// at builds a UTC instant.  2026-10-19 is a Monday, 2026-10-24 a Saturday.
func at(day, hour, min int) time.Time {
	return time.Date(2026, time.October, day, hour, min, 0, 0, time.UTC)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testPolicy = service.Policy{
	Location:                time.UTC,
	PendingTTL:              2 * time.Minute,
	PresentPoints:           10,
	ReducedAttendancePoints: 5,
	TransportAllowance:      5000,
}

type harness struct {
	svc      *service.TaggingService
	audit    *service.AuditLog
	settings *service.SettingsCache
	logs     *memory.TagLogStore
	schedule *memory.ScheduleStore
	readers  *memory.ReaderStore
	events   *eventstest.Recorder
	clock    *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		logs:     memory.NewTagLogStore(),
		schedule: memory.NewScheduleStore(),
		readers:  memory.NewReaderStore(),
		events:   eventstest.NewRecorder(),
		clock:    &fakeClock{now: at(19, 8, 0)},
	}
	ids := memory.NewIdentityStore(student, teacher, staff, admin)
	h.settings = service.NewSettingsCache(memory.NewSettingsStore(), time.Second)
	h.audit = service.NewAuditLog(h.logs, testPolicy)
	h.svc = service.NewTaggingService(service.Deps{
		Identities: service.NewIdentityRegistry(ids, h.logs),
		Schedule:   service.NewScheduleLookup(h.schedule, time.UTC),
		Settings:   h.settings,
		Audit:      h.audit,
		Readers:    service.NewReaderRegistry(h.readers),
		Publisher:  h.events,
		Policy:     testPolicy,
		Now:        h.clock.Now,
	})
	return h
}

func (h *harness) tapAt(uid string, t time.Time) (types.TapResult, error) {
	h.clock.Set(t)
	return h.svc.SubmitTap(context.Background(), types.TapRequest{
		UID:        uid,
		DeviceID:   "reader-1",
		DeviceType: "card",
	})
}

func (h *harness) confirm(tapID string, d types.Decision) (types.ConfirmResult, error) {
	return h.svc.Confirm(context.Background(), tapID, types.ConfirmRequest{Decision: d})
}

func (h *harness) reserve(studentID, teacherID string, start time.Time) {
	h.schedule.Add(types.Reservation{
		StudentID: studentID,
		TeacherID: teacherID,
		StartAt:   start,
		EndAt:     start.Add(50 * time.Minute),
		Confirmed: true,
	})
}
