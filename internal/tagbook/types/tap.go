package types

import "time"

// TapRequest is what a reader (card, QR scanner, mobile app) sends.
type TapRequest struct {
	UID        string            `json:"uid" validate:"required,max=64"`
	DeviceID   string            `json:"device_id" validate:"required,max=64"`
	DeviceType string            `json:"device_type,omitempty" validate:"omitempty,oneof=card qr mobile"`
	OccurredAt string            `json:"occurred_at,omitempty"` // optional device timestamp, RFC3339
	ClientMeta map[string]string `json:"client_meta,omitempty" validate:"max=16"`
}

type TapStatus string

const (
	TapCommitted TapStatus = "committed"
	TapPending   TapStatus = "pending"
)

type PopupType string

const (
	PopupNoReservation   PopupType = "no_reservation"
	PopupCheckoutConfirm PopupType = "checkout_confirm"
)

// Decision finalizes a pending tap.
type Decision string

const (
	DecisionAccept   Decision = "accept"
	DecisionOverride Decision = "override"
	DecisionCancel   Decision = "cancel"
)

// TransportAllowance is informational output on staff attendance commits.
type TransportAllowance struct {
	Eligible bool `json:"eligible"`
	Amount   int  `json:"amount"`
}

// PendingContext is what the confirmation UI needs to render its popup.
type PendingContext struct {
	Choices         []Decision      `json:"choices"`
	OverrideEvent   EventType       `json:"override_event,omitempty"`
	Schedule        []ScheduleEntry `json:"schedule,omitempty"`
	PriorEventType  EventType       `json:"prior_event_type,omitempty"`
	PriorOccurredAt *time.Time      `json:"prior_occurred_at,omitempty"`
	ElapsedMinutes  int             `json:"elapsed_minutes,omitempty"`
	Points          *int            `json:"points,omitempty"`
}

// TapResult is the tagged variant returned to the tap source: either a
// committed event or a pending decision awaiting confirmation.
type TapResult struct {
	Status      TapStatus `json:"status"`
	Message     string    `json:"message"`
	DisplayName string    `json:"display_name,omitempty"`
	ServerTime  string    `json:"server_time"`

	// Committed
	EventType     EventType           `json:"event_type,omitempty"`
	TagLogID      int64               `json:"tag_log_id,omitempty"`
	PointsAwarded *int                `json:"points_awarded,omitempty"`
	Schedule      []ScheduleEntry     `json:"schedule,omitempty"`
	Transport     *TransportAllowance `json:"transport,omitempty"`
	Reason        string              `json:"reason,omitempty"`

	// Pending
	TapID     string          `json:"tap_id,omitempty"`
	PopupType PopupType       `json:"popup_type,omitempty"`
	Candidate EventType       `json:"candidate_event_type,omitempty"`
	Context   *PendingContext `json:"context,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

type ConfirmRequest struct {
	Decision Decision `json:"decision" validate:"required,oneof=accept override cancel"`
}

type ConfirmResult struct {
	Status  string  `json:"status"` // "committed" | "cancelled"
	Message string  `json:"message"`
	TagLog  *TagLog `json:"tag_log,omitempty"`
}

// Reader is a tap source as last seen by the server.
type Reader struct {
	DeviceID    string    `json:"device_id"`
	DeviceType  string    `json:"device_type,omitempty"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}
