package service

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/platform/logger"
)

// Sweepable is anything holding short-lived state that expires on a
// clock.  TaggingService implements it.
type Sweepable interface {
	SweepExpired(now time.Time) (pending, rings int)
}

// ExpirySweeper periodically evicts expired pending decisions and idle
// dedup rings.  Confirm already rejects expired decisions on its own; the
// sweeper only bounds memory.
type ExpirySweeper struct {
	target   Sweepable
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewExpirySweeper creates a sweeper but does not start it.  A
// non-positive interval defaults to 15 seconds.
func NewExpirySweeper(target Sweepable, interval time.Duration, log *logger.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ExpirySweeper{
		target:   target,
		interval: interval,
		log:      log.With("service", "ExpirySweeper"),
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start runs the loop until ctx is cancelled or Stop is called.
func (s *ExpirySweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	s.log.Info("expiry sweeper started", "interval", s.interval.String())
}

// Stop signals the loop to exit and waits for it.  It is safe to call
// more than once.
func (s *ExpirySweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *ExpirySweeper) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *ExpirySweeper) sweep() {
	pending, rings := s.target.SweepExpired(s.now())
	if pending > 0 || rings > 0 {
		s.log.Debug("expired state evicted", "pending", pending, "dedup_rings", rings)
	}
}
