package service

import (
	"sync"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// DefaultPendingTTL is how long a popup stays confirmable.
const DefaultPendingTTL = 2 * time.Minute

// PendingDecision is an ambiguous tap held until the person confirms or
// cancels.  It never touches the audit log on its own.
type PendingDecision struct {
	TapID      string
	Identity   types.Identity
	Popup      types.PopupType
	Candidate  types.EventType
	Override   types.EventType
	Points     *int
	Context    types.PendingContext
	DeviceID   string
	DeviceType string
	DeviceTime *time.Time
	OccurredAt time.Time
	ExpiresAt  time.Time
}

func (p *PendingDecision) expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// pendingDecisions indexes pending decisions by tap id and by UID.  At
// most one live decision exists per UID; Create checks and inserts under
// one lock.
type pendingDecisions struct {
	mu    sync.Mutex
	byTap map[string]*PendingDecision
	byUID map[string]string
}

func newPendingDecisions() *pendingDecisions {
	return &pendingDecisions{
		byTap: make(map[string]*PendingDecision),
		byUID: make(map[string]string),
	}
}

func (p *pendingDecisions) Create(pd PendingDecision, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	uid := pd.Identity.UID
	if tapID, ok := p.byUID[uid]; ok {
		if cur := p.byTap[tapID]; cur != nil && !cur.expired(now) {
			return newError(CodeDecisionInProgress, nil)
		}
		p.removeLocked(tapID)
	}
	p.byTap[pd.TapID] = &pd
	p.byUID[uid] = pd.TapID
	return nil
}

// Active returns the live decision for uid, if any.
func (p *pendingDecisions) Active(uid string, now time.Time) (PendingDecision, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tapID, ok := p.byUID[uid]
	if !ok {
		return PendingDecision{}, false
	}
	cur := p.byTap[tapID]
	if cur == nil || cur.expired(now) {
		p.removeLocked(tapID)
		return PendingDecision{}, false
	}
	return *cur, true
}

func (p *pendingDecisions) Peek(tapID string, now time.Time) (PendingDecision, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := p.byTap[tapID]
	if cur == nil || cur.expired(now) {
		return PendingDecision{}, false
	}
	return *cur, true
}

// Take removes and returns the decision.  Expired decisions are removed
// and reported as not found.
func (p *pendingDecisions) Take(tapID string, now time.Time) (PendingDecision, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := p.byTap[tapID]
	if cur == nil {
		return PendingDecision{}, false
	}
	p.removeLocked(tapID)
	if cur.expired(now) {
		return PendingDecision{}, false
	}
	return *cur, true
}

// Restore puts back a decision whose commit failed, unless its slot was
// taken in the meantime.
func (p *pendingDecisions) Restore(pd PendingDecision) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, taken := p.byUID[pd.Identity.UID]; taken {
		return
	}
	p.byTap[pd.TapID] = &pd
	p.byUID[pd.Identity.UID] = pd.TapID
}

func (p *pendingDecisions) Sweep(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for tapID, cur := range p.byTap {
		if cur.expired(now) {
			p.removeLocked(tapID)
			n++
		}
	}
	return n
}

func (p *pendingDecisions) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byTap)
}

func (p *pendingDecisions) removeLocked(tapID string) {
	cur, ok := p.byTap[tapID]
	if !ok {
		return
	}
	delete(p.byTap, tapID)
	if p.byUID[cur.Identity.UID] == tapID {
		delete(p.byUID, cur.Identity.UID)
	}
}
