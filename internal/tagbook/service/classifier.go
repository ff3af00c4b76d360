package service

import (
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// ClassifyInput is everything a classification reads.  It is assembled by
// the caller so Classify itself does no I/O.
type ClassifyInput struct {
	Identity types.Identity
	At       time.Time
	Schedule []types.ScheduleEntry
	Settings types.Settings
	// PriorCheckIn is today's newest checked-in record for the UID.
	PriorCheckIn *types.TagLog
}

// Outcome is either a commit (Pending false) or a pending popup.  For a
// pending outcome EventType is the candidate the popup proposes.
type Outcome struct {
	Pending   bool
	EventType types.EventType
	Popup     types.PopupType
	Override  types.EventType
	Points    *int
	Transport *types.TransportAllowance
	Schedule  []types.ScheduleEntry

	Matched      *types.ScheduleEntry
	DeltaMinutes int
	Elapsed      time.Duration
}

// Classify maps a resolved tap to an event.  Each role has its own path.
func Classify(in ClassifyInput, p Policy) Outcome {
	p = p.withDefaults()
	switch in.Identity.Role {
	case types.RoleStudent:
		return classifyStudent(in, p)
	case types.RoleTeacher:
		out := classifyEmployee(in, p)
		out.Schedule = in.Schedule
		return out
	case types.RoleStaff:
		out := classifyEmployee(in, p)
		if out.EventType == types.EventAttendance && !out.Pending {
			out.Transport = &types.TransportAllowance{
				Eligible: isWeekday(in.At.In(p.Location)),
				Amount:   p.TransportAllowance,
			}
		}
		return out
	default:
		return classifyEmployee(in, p)
	}
}

func classifyEmployee(in ClassifyInput, p Policy) Outcome {
	var candidate types.EventType
	switch h := in.At.In(p.Location).Hour(); {
	case h < 12:
		candidate = types.EventAttendance
	case h >= 18:
		candidate = types.EventCheckout
	default:
		candidate = types.EventReAttendance
	}

	out := Outcome{EventType: candidate}
	if candidate != types.EventCheckout || in.PriorCheckIn == nil {
		return out
	}
	elapsed := in.At.Sub(in.PriorCheckIn.OccurredAt)
	if elapsed >= 0 && elapsed < in.Settings.CheckoutWindow() {
		out.Pending = true
		out.Popup = types.PopupCheckoutConfirm
		out.Override = types.EventReAttendance
		out.Elapsed = elapsed
	}
	return out
}

func classifyStudent(in ClassifyInput, p Policy) Outcome {
	if len(in.Schedule) == 0 {
		return Outcome{
			Pending:   true,
			EventType: types.EventAttendance,
			Popup:     types.PopupNoReservation,
			Points:    intPtr(p.ReducedAttendancePoints),
		}
	}

	best := 0
	bestDist := absDuration(in.At.Sub(in.Schedule[0].StartTime))
	for i := 1; i < len(in.Schedule); i++ {
		// Strictly closer only: on a tie the earlier entry stays.
		if d := absDuration(in.At.Sub(in.Schedule[i].StartTime)); d < bestDist {
			best, bestDist = i, d
		}
	}
	entry := in.Schedule[best]
	// Truncates toward zero; see PunctualityWindow.
	delta := int(in.At.Sub(entry.StartTime) / time.Minute)

	out := Outcome{
		Schedule:     in.Schedule,
		Matched:      &entry,
		DeltaMinutes: delta,
	}
	switch {
	case delta > PunctualityWindow:
		out.EventType = types.EventLate
	case delta < -PunctualityWindow:
		out.EventType = types.EventEarly
	default:
		out.EventType = types.EventPresent
		out.Points = intPtr(p.PresentPoints)
	}
	return out
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
