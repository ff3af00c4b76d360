package types

import "time"

// EventType is the single taxonomy stored on every TagLog.  Employee and
// student vocabularies share the field.
type EventType string

const (
	EventAttendance    EventType = "attendance"
	EventCheckout      EventType = "checkout"
	EventReAttendance  EventType = "re_attendance"
	EventPresent       EventType = "present"
	EventLate          EventType = "late"
	EventEarly         EventType = "early"
	EventAbsent        EventType = "absent"
	EventAlreadyTagged EventType = "already_tagged"
)

var AllEventTypes = []EventType{
	EventAttendance, EventCheckout, EventReAttendance,
	EventPresent, EventLate, EventEarly, EventAbsent, EventAlreadyTagged,
}

func (e EventType) Valid() bool {
	for _, t := range AllEventTypes {
		if t == e {
			return true
		}
	}
	return false
}

// CheckedIn reports whether the event marks the person as on site.
func (e EventType) CheckedIn() bool {
	switch e {
	case EventAttendance, EventReAttendance, EventPresent, EventLate, EventEarly:
		return true
	}
	return false
}

// TagLog is the immutable audit record of a finalized tap.
type TagLog struct {
	ID         int64      `json:"id"`
	UID        string     `json:"uid"`
	PersonID   string     `json:"person_id"`
	Role       Role       `json:"role"`
	EventType  EventType  `json:"event_type"`
	OccurredAt time.Time  `json:"occurred_at"`
	DeviceID   string     `json:"device_id"`
	DeviceType string     `json:"device_type,omitempty"`
	DeviceTime *time.Time `json:"device_time,omitempty"`
	// On a correction PointsAwarded is the delta booked against the
	// corrected record, not an absolute award.
	PointsAwarded *int   `json:"points_awarded,omitempty"`
	TapID         string `json:"tap_id,omitempty"`
	CorrectsID    *int64 `json:"corrects_id,omitempty"`
	Note          string `json:"note,omitempty"`
}

type PointsLedgerEntry struct {
	ID         int64     `json:"id"`
	PersonID   string    `json:"person_id"`
	Delta      int       `json:"delta"`
	TagLogID   int64     `json:"tag_log_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type TagLogFilter struct {
	UID        string
	From       *time.Time // inclusive
	To         *time.Time // exclusive
	EventTypes []EventType
}

type Page struct {
	Number int `json:"page"`
	Size   int `json:"page_size"`
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

type TagLogPage struct {
	Items      []TagLog `json:"items"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}

type CorrectionRequest struct {
	EventType EventType `json:"event_type" validate:"required"`
	Note      string    `json:"note" validate:"required,max=256"`
}
