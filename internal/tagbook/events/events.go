// Package events carries commit facts to the payroll and points
// collaborators.  Publishing is fire-and-forget from the engine's point of
// view: a failed publish never undoes a committed tag log.
package events

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/platform/logger"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

const KindTagCommitted = "tag.committed"

// PayrollFact is the raw attendance fact payroll consumes for employees.
type PayrollFact struct {
	PersonID          string          `json:"person_id"`
	Role              types.Role      `json:"role"`
	EventType         types.EventType `json:"event_type"`
	OccurredAt        time.Time       `json:"occurred_at"`
	TransportEligible bool            `json:"transport_eligible"`
	TransportAmount   int             `json:"transport_amount,omitempty"`
}

type Event struct {
	Kind    string                   `json:"kind"`
	TagLog  types.TagLog             `json:"tag_log"`
	Points  *types.PointsLedgerEntry `json:"points,omitempty"`
	Payroll *PayrollFact             `json:"payroll,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes events to the structured log.  It is the default
// when no broker is configured.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.With("service", "EventLog")}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	kv := []interface{}{
		"kind", ev.Kind,
		"tag_log_id", ev.TagLog.ID,
		"person_id", ev.TagLog.PersonID,
		"event_type", ev.TagLog.EventType,
	}
	if ev.Points != nil {
		kv = append(kv, "points_delta", ev.Points.Delta)
	}
	if ev.Payroll != nil {
		kv = append(kv, "transport_eligible", ev.Payroll.TransportEligible)
	}
	p.log.Info("tag event", kv...)
	return nil
}
