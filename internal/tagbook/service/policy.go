package service

import (
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

const (
	DefaultPresentPoints           = 10
	DefaultReducedAttendancePoints = 5
	DefaultTransportAllowance      = 5000

	// PunctualityWindow is the whole-minute distance from a lesson start
	// that still counts as present.  The tap's offset is truncated toward
	// zero before comparing, so present covers every tap strictly less than
	// 11 minutes either side of the start (T-10m59s through T+10m59s).
	PunctualityWindow = 10
)

// Policy holds the fixed, deploy-time parts of classification.  The
// admin-tunable parts live in types.Settings.
type Policy struct {
	Location                *time.Location
	PendingTTL              time.Duration
	PresentPoints           int
	ReducedAttendancePoints int
	TransportAllowance      int
}

func DefaultPolicy() Policy {
	return Policy{
		Location:                time.Local,
		PendingTTL:              DefaultPendingTTL,
		PresentPoints:           DefaultPresentPoints,
		ReducedAttendancePoints: DefaultReducedAttendancePoints,
		TransportAllowance:      DefaultTransportAllowance,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Location == nil {
		p.Location = d.Location
	}
	if p.PendingTTL <= 0 {
		p.PendingTTL = d.PendingTTL
	}
	if p.PresentPoints <= 0 {
		p.PresentPoints = d.PresentPoints
	}
	if p.ReducedAttendancePoints <= 0 {
		p.ReducedAttendancePoints = d.ReducedAttendancePoints
	}
	if p.TransportAllowance < 0 {
		p.TransportAllowance = 0
	}
	return p
}

// PointsFor returns the points a committed event of type e earns, or nil.
func (p Policy) PointsFor(e types.EventType) *int {
	if e == types.EventPresent {
		return intPtr(p.PresentPoints)
	}
	return nil
}

func intPtr(v int) *int { return &v }
