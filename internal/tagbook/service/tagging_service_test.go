package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/service"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// ── Employee path ────────────────────────────────────────────────────────────

func TestSubmitTap_EmployeeHourSplit(t *testing.T) {
	cases := []struct {
		hour int
		want types.EventType
	}{
		{8, types.EventAttendance},
		{11, types.EventAttendance},
		{12, types.EventReAttendance},
		{14, types.EventReAttendance},
		{18, types.EventCheckout},
		{19, types.EventCheckout},
	}
	for _, tc := range cases {
		for _, who := range []types.Identity{teacher, staff, admin} {
			h := newHarness(t)
			res, err := h.tapAt(who.UID, at(19, tc.hour, 0))
			require.NoError(t, err)
			assert.Equal(t, types.TapCommitted, res.Status, "%s at %d", who.Role, tc.hour)
			assert.Equal(t, tc.want, res.EventType, "%s at %d", who.Role, tc.hour)
			assert.Nil(t, res.PointsAwarded)
		}
	}
}

func TestSubmitTap_TeacherGetsScheduleContext(t *testing.T) {
	h := newHarness(t)
	h.reserve(student.PersonID, teacher.PersonID, at(19, 10, 0))
	h.reserve(student.PersonID, teacher.PersonID, at(20, 10, 0))

	res, err := h.tapAt(teacher.UID, at(19, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, types.EventAttendance, res.EventType)
	require.Len(t, res.Schedule, 1)
	assert.Equal(t, student.PersonID, res.Schedule[0].CounterpartyID)
	assert.Nil(t, res.Transport)
}

func TestSubmitTap_StaffTransportAllowance(t *testing.T) {
	h := newHarness(t)

	res, err := h.tapAt(staff.UID, at(19, 8, 0))
	require.NoError(t, err)
	require.NotNil(t, res.Transport)
	assert.True(t, res.Transport.Eligible)
	assert.Equal(t, 5000, res.Transport.Amount)

	h = newHarness(t)
	res, err = h.tapAt(staff.UID, at(24, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, types.EventAttendance, res.EventType)
	require.NotNil(t, res.Transport)
	assert.False(t, res.Transport.Eligible, "saturday is not eligible")

	h = newHarness(t)
	res, err = h.tapAt(staff.UID, at(19, 14, 0))
	require.NoError(t, err)
	assert.Nil(t, res.Transport, "only attendance carries the allowance")
}

// ── Student path ─────────────────────────────────────────────────────────────

func TestSubmitTap_StudentWithoutReservationIsPending(t *testing.T) {
	for _, hour := range []int{7, 10, 15, 20} {
		h := newHarness(t)
		res, err := h.tapAt(student.UID, at(19, hour, 0))
		require.NoError(t, err)
		assert.Equal(t, types.TapPending, res.Status)
		assert.Equal(t, types.PopupNoReservation, res.PopupType)
		assert.Equal(t, types.EventAttendance, res.Candidate)
		assert.NotEmpty(t, res.TapID)
		require.NotNil(t, res.ExpiresAt)
		assert.Equal(t, at(19, hour, 2), *res.ExpiresAt)
		assert.Empty(t, h.logs.Logs(), "pending taps are not committed")
	}
}

func TestSubmitTap_StudentPunctuality(t *testing.T) {
	cases := []struct {
		name   string
		offset time.Duration
		want   types.EventType
		points *int
	}{
		{"on time", 0, types.EventPresent, ptr(10)},
		{"ten late", 10 * time.Minute, types.EventPresent, ptr(10)},
		{"ten early", -10 * time.Minute, types.EventPresent, ptr(10)},
		{"eleven late", 11 * time.Minute, types.EventLate, nil},
		{"eleven early", -11 * time.Minute, types.EventEarly, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.reserve(student.PersonID, teacher.PersonID, at(19, 10, 0))

			res, err := h.tapAt(student.UID, at(19, 10, 0).Add(tc.offset))
			require.NoError(t, err)
			assert.Equal(t, types.TapCommitted, res.Status)
			assert.Equal(t, tc.want, res.EventType)
			assert.Equal(t, tc.points, res.PointsAwarded)
		})
	}
}

func TestSubmitTap_StudentClosestEntryTieGoesToEarlier(t *testing.T) {
	h := newHarness(t)
	h.reserve(student.PersonID, teacher.PersonID, at(19, 10, 0))
	h.reserve(student.PersonID, teacher.PersonID, at(19, 11, 0))

	// 10:30 is equidistant; the 10:00 entry wins and the tap is late.
	res, err := h.tapAt(student.UID, at(19, 10, 30))
	require.NoError(t, err)
	assert.Equal(t, types.EventLate, res.EventType)

	h = newHarness(t)
	h.reserve(student.PersonID, teacher.PersonID, at(19, 10, 0))
	h.reserve(student.PersonID, teacher.PersonID, at(19, 11, 0))
	res, err = h.tapAt(student.UID, at(19, 10, 55))
	require.NoError(t, err)
	assert.Equal(t, types.EventPresent, res.EventType)
}

func TestSubmitTap_UnconfirmedReservationIgnored(t *testing.T) {
	h := newHarness(t)
	h.schedule.Add(types.Reservation{
		StudentID: student.PersonID,
		TeacherID: teacher.PersonID,
		StartAt:   at(19, 10, 0),
		EndAt:     at(19, 10, 50),
	})
	res, err := h.tapAt(student.UID, at(19, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, types.TapPending, res.Status)
}

// ── Rate limiting ────────────────────────────────────────────────────────────

func TestSubmitTap_FourthRapidTapIsAlreadyTagged(t *testing.T) {
	h := newHarness(t)
	start := at(19, 8, 0)

	for i := 0; i < 3; i++ {
		res, err := h.tapAt(staff.UID, start.Add(time.Duration(i)*10*time.Second))
		require.NoError(t, err)
		assert.Equal(t, types.EventAttendance, res.EventType, "tap %d", i+1)
	}

	res, err := h.tapAt(staff.UID, start.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, types.TapCommitted, res.Status)
	assert.Equal(t, types.EventAlreadyTagged, res.EventType)
	assert.Equal(t, string(service.CodeTooManyTaps), res.Reason)
	assert.Nil(t, res.Transport, "rejected taps are not classified")
	assert.NotEmpty(t, res.Message)

	logs := h.logs.Logs()
	require.Len(t, logs, 4)
	assert.Equal(t, types.EventAlreadyTagged, logs[3].EventType)
	assert.Equal(t, "TOO_MANY_TAPS", logs[3].Note)
}

func TestSubmitTap_RateLimitWindowExpires(t *testing.T) {
	h := newHarness(t)
	start := at(19, 8, 0)
	for i := 0; i < 3; i++ {
		_, err := h.tapAt(staff.UID, start.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	res, err := h.tapAt(staff.UID, start.Add(2*time.Minute+time.Second))
	require.NoError(t, err)
	assert.Equal(t, types.EventAttendance, res.EventType)
}

func TestSubmitTap_RateLimitFollowsSettings(t *testing.T) {
	h := newHarness(t)
	_, err := h.settings.Update(context.Background(), types.Settings{CheckoutThreshold: 10, MaxReTags: 1})
	require.NoError(t, err)

	res, err := h.tapAt(teacher.UID, at(19, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, types.EventAttendance, res.EventType)

	res, err = h.tapAt(teacher.UID, at(19, 8, 1))
	require.NoError(t, err)
	assert.Equal(t, types.EventAlreadyTagged, res.EventType)
}

func TestSubmitTap_FailedCommitDoesNotCountTowardLimit(t *testing.T) {
	h := newHarness(t)
	h.logs.FailAppends(errors.New("disk full"))

	_, err := h.tapAt(staff.UID, at(19, 8, 0))
	require.Error(t, err)
	assert.Equal(t, service.Code(""), service.CodeOf(err))
	assert.Equal(t, "Temporarily unavailable. Please tap again.", service.DisplayMessage(err))

	h.logs.FailAppends(nil)
	for i := 1; i <= 3; i++ {
		res, err := h.tapAt(staff.UID, at(19, 8, 0).Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.Equal(t, types.EventAttendance, res.EventType, "tap %d", i)
	}
}

// ── Checkout ambiguity ───────────────────────────────────────────────────────

func TestSubmitTap_CheckoutSoonAfterCheckInIsPending(t *testing.T) {
	h := newHarness(t)

	_, err := h.tapAt(staff.UID, at(19, 17, 55))
	require.NoError(t, err)

	res, err := h.tapAt(staff.UID, at(19, 18, 2))
	require.NoError(t, err)
	assert.Equal(t, types.TapPending, res.Status)
	assert.Equal(t, types.PopupCheckoutConfirm, res.PopupType)
	assert.Equal(t, types.EventCheckout, res.Candidate)
	require.NotNil(t, res.Context)
	assert.Equal(t, types.EventReAttendance, res.Context.PriorEventType)
	assert.Equal(t, 7, res.Context.ElapsedMinutes)
	assert.Equal(t, types.EventReAttendance, res.Context.OverrideEvent)
	assert.Len(t, h.logs.Logs(), 1)
}

// A checkout is measured from the newest check-in of the day, including a
// re_attendance after a morning attendance.  attendance alone can never
// anchor it: the hour split puts attendance before 12:00 and checkout at
// 18:00 or later, further apart than the largest threshold.
func TestSubmitTap_CheckoutMeasuredFromLatestReAttendance(t *testing.T) {
	h := newHarness(t)

	res, err := h.tapAt(staff.UID, at(19, 8, 0))
	require.NoError(t, err)
	require.Equal(t, types.EventAttendance, res.EventType)
	res, err = h.tapAt(staff.UID, at(19, 17, 58))
	require.NoError(t, err)
	require.Equal(t, types.EventReAttendance, res.EventType)

	res, err = h.tapAt(staff.UID, at(19, 18, 1))
	require.NoError(t, err)
	assert.Equal(t, types.TapPending, res.Status)
	assert.Equal(t, types.PopupCheckoutConfirm, res.PopupType)
	require.NotNil(t, res.Context)
	assert.Equal(t, types.EventReAttendance, res.Context.PriorEventType)
	assert.Equal(t, 3, res.Context.ElapsedMinutes)
}

func TestSubmitTap_CheckoutAfterMorningAttendanceOnlyCommits(t *testing.T) {
	h := newHarness(t)

	_, err := h.tapAt(staff.UID, at(19, 11, 59))
	require.NoError(t, err)

	res, err := h.tapAt(staff.UID, at(19, 18, 0))
	require.NoError(t, err)
	assert.Equal(t, types.TapCommitted, res.Status)
	assert.Equal(t, types.EventCheckout, res.EventType)
}

func TestSubmitTap_CheckoutAfterThresholdCommits(t *testing.T) {
	h := newHarness(t)

	_, err := h.tapAt(teacher.UID, at(19, 17, 45))
	require.NoError(t, err)

	res, err := h.tapAt(teacher.UID, at(19, 18, 0))
	require.NoError(t, err)
	assert.Equal(t, types.TapCommitted, res.Status)
	assert.Equal(t, types.EventCheckout, res.EventType)
}

func TestSubmitTap_CheckoutThresholdUpdateAppliesImmediately(t *testing.T) {
	h := newHarness(t)
	_, err := h.settings.Update(context.Background(), types.Settings{CheckoutThreshold: 5, MaxReTags: 3})
	require.NoError(t, err)

	_, err = h.tapAt(staff.UID, at(19, 17, 55))
	require.NoError(t, err)
	res, err := h.tapAt(staff.UID, at(19, 18, 2))
	require.NoError(t, err)
	assert.Equal(t, types.EventCheckout, res.EventType)
}

// ── Confirmation ─────────────────────────────────────────────────────────────

func TestConfirm_CancelNeverWritesTagLog(t *testing.T) {
	h := newHarness(t)
	res, err := h.tapAt(student.UID, at(19, 10, 0))
	require.NoError(t, err)

	out, err := h.confirm(res.TapID, types.DecisionCancel)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", out.Status)
	assert.Nil(t, out.TagLog)
	assert.Empty(t, h.logs.Logs())

	_, err = h.confirm(res.TapID, types.DecisionCancel)
	assert.ErrorIs(t, err, service.ErrPendingNotFound)
}

func TestConfirm_NoReservationRecordsReducedAttendance(t *testing.T) {
	for _, d := range []types.Decision{types.DecisionAccept, types.DecisionOverride} {
		h := newHarness(t)
		res, err := h.tapAt(student.UID, at(19, 10, 0))
		require.NoError(t, err)

		out, err := h.confirm(res.TapID, d)
		require.NoError(t, err)
		require.NotNil(t, out.TagLog)
		assert.Equal(t, "committed", out.Status)
		assert.Equal(t, types.EventAttendance, out.TagLog.EventType)
		assert.Equal(t, ptr(5), out.TagLog.PointsAwarded)
		assert.Equal(t, res.TapID, out.TagLog.TapID)
		assert.Equal(t, at(19, 10, 0), out.TagLog.OccurredAt)
		assert.Len(t, h.logs.Logs(), 1, "exactly one tag log per accepted confirm")

		_, err = h.confirm(res.TapID, d)
		assert.ErrorIs(t, err, service.ErrPendingNotFound)
	}
}

func TestConfirm_CheckoutDecisions(t *testing.T) {
	cases := []struct {
		decision types.Decision
		want     types.EventType
	}{
		{types.DecisionAccept, types.EventCheckout},
		{types.DecisionOverride, types.EventReAttendance},
	}
	for _, tc := range cases {
		h := newHarness(t)
		_, err := h.tapAt(staff.UID, at(19, 17, 55))
		require.NoError(t, err)
		res, err := h.tapAt(staff.UID, at(19, 18, 2))
		require.NoError(t, err)
		require.Equal(t, types.TapPending, res.Status)

		out, err := h.confirm(res.TapID, tc.decision)
		require.NoError(t, err)
		assert.Equal(t, tc.want, out.TagLog.EventType)
		assert.Len(t, h.logs.Logs(), 2)
	}
}

func TestConfirm_ExpiredDecisionIsNotFound(t *testing.T) {
	h := newHarness(t)
	res, err := h.tapAt(student.UID, at(19, 10, 0))
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)
	_, err = h.confirm(res.TapID, types.DecisionOverride)
	assert.ErrorIs(t, err, service.ErrPendingNotFound)
	assert.Empty(t, h.logs.Logs())

	// The slot is free again.
	again, err := h.tapAt(student.UID, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, types.TapPending, again.Status)
	assert.NotEqual(t, res.TapID, again.TapID)
}

func TestConfirm_UnknownTapID(t *testing.T) {
	h := newHarness(t)
	_, err := h.confirm("nope", types.DecisionAccept)
	assert.ErrorIs(t, err, service.ErrPendingNotFound)

	_, err = h.confirm(" ", types.DecisionAccept)
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestConfirm_InvalidDecision(t *testing.T) {
	h := newHarness(t)
	res, err := h.tapAt(student.UID, at(19, 10, 0))
	require.NoError(t, err)

	_, err = h.confirm(res.TapID, types.Decision("maybe"))
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	// Still confirmable.
	_, err = h.confirm(res.TapID, types.DecisionCancel)
	assert.NoError(t, err)
}

func TestConfirm_FailedCommitKeepsDecision(t *testing.T) {
	h := newHarness(t)
	res, err := h.tapAt(student.UID, at(19, 10, 0))
	require.NoError(t, err)

	h.logs.FailAppends(errors.New("locked"))
	_, err = h.confirm(res.TapID, types.DecisionOverride)
	require.Error(t, err)

	h.logs.FailAppends(nil)
	out, err := h.confirm(res.TapID, types.DecisionOverride)
	require.NoError(t, err)
	assert.Equal(t, types.EventAttendance, out.TagLog.EventType)
}

func TestSubmitTap_PendingBlocksSecondTap(t *testing.T) {
	h := newHarness(t)
	res, err := h.tapAt(student.UID, at(19, 10, 0))
	require.NoError(t, err)
	require.Equal(t, types.TapPending, res.Status)

	_, err = h.tapAt(student.UID, at(19, 10, 1))
	assert.ErrorIs(t, err, service.ErrDecisionInProgress)
	assert.Equal(t, "Please finish the open confirmation first.", service.DisplayMessage(err))

	// Other UIDs are unaffected.
	other, err := h.tapAt(teacher.UID, at(19, 10, 1))
	require.NoError(t, err)
	assert.Equal(t, types.TapCommitted, other.Status)
}

// ── Concurrency ──────────────────────────────────────────────────────────────

func TestSubmitTap_ConcurrentTapsSameUID(t *testing.T) {
	h := newHarness(t)
	h.clock.Set(at(19, 10, 0))

	const n = 8
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]types.TapResult, n)
		errs    = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = h.svc.SubmitTap(context.Background(), types.TapRequest{
				UID:      student.UID,
				DeviceID: "reader-" + string(rune('a'+i)),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	pending := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			assert.ErrorIs(t, errs[i], service.ErrDecisionInProgress)
			continue
		}
		assert.Equal(t, types.TapPending, results[i].Status)
		pending++
	}
	assert.Equal(t, 1, pending)
	assert.Empty(t, h.logs.Logs())
}

func TestSubmitTap_ConcurrentEmployeeTapsNeverExceedLimit(t *testing.T) {
	h := newHarness(t)
	h.clock.Set(at(19, 8, 0))

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.SubmitTap(context.Background(), types.TapRequest{UID: staff.UID, DeviceID: "reader-1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	counts := map[types.EventType]int{}
	for _, l := range h.logs.Logs() {
		counts[l.EventType]++
	}
	assert.Equal(t, 3, counts[types.EventAttendance])
	assert.Equal(t, n-3, counts[types.EventAlreadyTagged])
}

// ── Errors and audit ─────────────────────────────────────────────────────────

func TestSubmitTap_UnregisteredUID(t *testing.T) {
	h := newHarness(t)
	_, err := h.tapAt("card-unknown", at(19, 8, 0))
	assert.ErrorIs(t, err, service.ErrUIDNotRegistered)
	assert.Equal(t, service.CodeUIDNotRegistered, service.CodeOf(err))
	assert.Empty(t, h.logs.Logs())
}

func TestSubmitTap_InvalidRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reqs := []types.TapRequest{
		{UID: "", DeviceID: "reader-1"},
		{UID: staff.UID, DeviceID: ""},
		{UID: staff.UID, DeviceID: "reader-1", DeviceType: "nfc-ring"},
		{UID: staff.UID, DeviceID: "reader-1", OccurredAt: "yesterday"},
	}
	for _, req := range reqs {
		_, err := h.svc.SubmitTap(ctx, req)
		assert.ErrorIs(t, err, service.ErrInvalidRequest, "%+v", req)
	}
	assert.Empty(t, h.logs.Logs())
	assert.Empty(t, h.events.Events())
}

func TestSubmitTap_RoundTripThroughQuery(t *testing.T) {
	h := newHarness(t)
	h.reserve(student.PersonID, teacher.PersonID, at(19, 10, 0))

	h.clock.Set(at(19, 10, 5))
	res, err := h.svc.SubmitTap(context.Background(), types.TapRequest{
		UID:        student.UID,
		DeviceID:   "reader-9",
		DeviceType: "qr",
		OccurredAt: "2026-10-19T10:04:30Z",
	})
	require.NoError(t, err)

	page, err := h.audit.Query(context.Background(), types.TagLogFilter{UID: student.UID}, types.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	got := page.Items[0]
	assert.Equal(t, res.TagLogID, got.ID)
	assert.Equal(t, types.EventPresent, got.EventType)
	assert.Equal(t, at(19, 10, 5), got.OccurredAt)
	assert.Equal(t, "reader-9", got.DeviceID)
	require.NotNil(t, got.DeviceTime)
	assert.Equal(t, time.Date(2026, 10, 19, 10, 4, 30, 0, time.UTC), *got.DeviceTime)
}

func TestSubmitTap_NotesReader(t *testing.T) {
	h := newHarness(t)
	_, err := h.tapAt(teacher.UID, at(19, 8, 0))
	require.NoError(t, err)

	readers, err := h.readers.List(context.Background())
	require.NoError(t, err)
	require.Len(t, readers, 1)
	assert.Equal(t, "reader-1", readers[0].DeviceID)
	assert.Equal(t, "card", readers[0].DeviceType)
}

// ── Side-channel events ──────────────────────────────────────────────────────

func TestSubmitTap_PublishesCommitEvents(t *testing.T) {
	h := newHarness(t)
	h.reserve(student.PersonID, teacher.PersonID, at(19, 10, 0))

	_, err := h.tapAt(staff.UID, at(19, 8, 0))
	require.NoError(t, err)
	_, err = h.tapAt(student.UID, at(19, 10, 5))
	require.NoError(t, err)

	evs := h.events.Events()
	require.Len(t, evs, 2)

	require.NotNil(t, evs[0].Payroll)
	assert.Equal(t, staff.PersonID, evs[0].Payroll.PersonID)
	assert.True(t, evs[0].Payroll.TransportEligible)
	assert.Equal(t, 5000, evs[0].Payroll.TransportAmount)
	assert.Nil(t, evs[0].Points)

	assert.Nil(t, evs[1].Payroll, "students have no payroll facts")
	require.NotNil(t, evs[1].Points)
	assert.Equal(t, 10, evs[1].Points.Delta)
	assert.Equal(t, evs[1].TagLog.ID, evs[1].Points.TagLogID)
}

func TestSubmitTap_PublishFailureDoesNotFailTap(t *testing.T) {
	h := newHarness(t)
	h.events.FailWith(errors.New("broker down"))

	res, err := h.tapAt(teacher.UID, at(19, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, types.TapCommitted, res.Status)
	assert.Len(t, h.logs.Logs(), 1)
}

// ── Scenario ─────────────────────────────────────────────────────────────────

func TestScenario_MondayMorning(t *testing.T) {
	h := newHarness(t)
	h.reserve(student.PersonID, teacher.PersonID, at(19, 10, 0))

	res, err := h.tapAt(student.UID, at(19, 10, 5))
	require.NoError(t, err)
	assert.Equal(t, types.EventPresent, res.EventType)
	assert.Equal(t, ptr(10), res.PointsAwarded)

	res, err = h.tapAt(student.UID, at(19, 10, 20))
	require.NoError(t, err)
	assert.Equal(t, types.EventLate, res.EventType)
	assert.Nil(t, res.PointsAwarded)

	res, err = h.tapAt(teacher.UID, at(19, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, types.EventAttendance, res.EventType)

	res, err = h.tapAt(staff.UID, at(24, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, types.EventAttendance, res.EventType)
	assert.False(t, res.Transport.Eligible)

	for i := 1; i <= 2; i++ {
		res, err = h.tapAt(teacher.UID, at(19, 8, 0).Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.Equal(t, types.EventAttendance, res.EventType)
	}
	res, err = h.tapAt(teacher.UID, at(19, 8, 0).Add(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, types.EventAlreadyTagged, res.EventType)

	sum, err := h.audit.Points(context.Background(), student.PersonID)
	require.NoError(t, err)
	assert.Equal(t, 10, sum.Balance)
}

func TestSweepExpired(t *testing.T) {
	h := newHarness(t)
	_, err := h.tapAt(student.UID, at(19, 10, 0))
	require.NoError(t, err)

	pending, rings := h.svc.SweepExpired(at(19, 10, 1))
	assert.Equal(t, 0, pending)
	assert.Equal(t, 0, rings)

	pending, rings = h.svc.SweepExpired(at(19, 10, 3))
	assert.Equal(t, 1, pending)
	assert.Equal(t, 1, rings)
}

func ptr(v int) *int { return &v }
