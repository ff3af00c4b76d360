package service

import (
	"sync"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// MaxDedupWindow caps the anti-bounce window regardless of settings.
const MaxDedupWindow = 2 * time.Minute

type Admission struct {
	Admitted bool
	// Recent is the number of admitted taps inside the window, including
	// this one when admitted.
	Recent int
	Window time.Duration
}

// Deduplicator keeps, per UID, the timestamps of recently admitted taps
// and rejects bursts above MaxReTags.  Check and insert happen under one
// lock so two concurrent taps can never both take the last slot.
type Deduplicator struct {
	mu    sync.Mutex
	rings map[string][]time.Time
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{rings: make(map[string][]time.Time)}
}

func dedupWindow(s types.Settings) time.Duration {
	if w := s.CheckoutWindow(); w > 0 && w < MaxDedupWindow {
		return w
	}
	return MaxDedupWindow
}

func (d *Deduplicator) Admit(uid string, at time.Time, s types.Settings) Admission {
	window := dedupWindow(s)

	d.mu.Lock()
	defer d.mu.Unlock()

	recent := d.rings[uid][:0:0]
	for _, t := range d.rings[uid] {
		if at.Sub(t) < window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= s.MaxReTags {
		d.rings[uid] = recent
		return Admission{Admitted: false, Recent: len(recent), Window: window}
	}

	recent = append(recent, at)
	if over := len(recent) - types.MaxReTagsLimit; over > 0 {
		recent = recent[over:]
	}
	d.rings[uid] = recent
	return Admission{Admitted: true, Recent: len(recent), Window: window}
}

// Revert drops an admission whose tap failed before anything was
// committed, so the retry is not counted twice.
func (d *Deduplicator) Revert(uid string, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ring := d.rings[uid]
	for i := len(ring) - 1; i >= 0; i-- {
		if ring[i].Equal(at) {
			d.rings[uid] = append(ring[:i:i], ring[i+1:]...)
			break
		}
	}
	if len(d.rings[uid]) == 0 {
		delete(d.rings, uid)
	}
}

// Sweep forgets UIDs with no tap inside the maximum window.
func (d *Deduplicator) Sweep(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for uid, ring := range d.rings {
		if len(ring) == 0 || now.Sub(ring[len(ring)-1]) >= MaxDedupWindow {
			delete(d.rings, uid)
			n++
		}
	}
	return n
}
