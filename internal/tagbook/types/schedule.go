package types

import "time"

// ScheduleEntry is one reservation as seen from a single person: for a
// student the counterparty is the teacher, for a teacher the student.
type ScheduleEntry struct {
	PersonID       string    `json:"person_id"`
	Date           string    `json:"date"` // YYYY-MM-DD in the school's time zone
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	CounterpartyID string    `json:"counterparty_id"`
}

// Reservation is the collaborator-owned row both entries are derived from.
type Reservation struct {
	StudentID string    `json:"student_id" yaml:"student_id"`
	TeacherID string    `json:"teacher_id" yaml:"teacher_id"`
	StartAt   time.Time `json:"start_at" yaml:"start_at"`
	EndAt     time.Time `json:"end_at" yaml:"end_at"`
	Confirmed bool      `json:"confirmed" yaml:"confirmed"`
}
