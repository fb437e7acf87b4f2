package lock

import (
	"context"
	"time"

	"github.com/yuewuo/AutoLock/internal/debug"
)

// DefaultReturnPeriod is the interval between pending-return checks
// when no period is configured.
const DefaultReturnPeriod = 100 * time.Millisecond

// Scheduler runs the deferred return-to-center moves. It has no state
// of its own: every tick it asks the controller to process a pending
// return, serialized against all other controller operations by the
// controller mutex. A return still pending at shutdown is abandoned —
// the motor stays at the lock/unlock position, not centered.
type Scheduler struct {
	ctrl   *Controller
	period time.Duration

	// OnReturn, if set, is called after each completed return with the
	// controller position (always 0). Used by the facade to push a
	// status update to connected clients.
	OnReturn func(position int)
}

// NewScheduler creates a scheduler for the controller. period <= 0
// falls back to DefaultReturnPeriod.
func NewScheduler(ctrl *Controller, period time.Duration) *Scheduler {
	if period <= 0 {
		period = DefaultReturnPeriod
	}
	return &Scheduler{ctrl: ctrl, period: period}
}

// Run blocks, checking for a pending return every period, until ctx
// is cancelled. A driver failure during a return is logged and
// dropped: the flag was already cleared, so there is no retry.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	debug.Verbose("Return-to-center scheduler running (period %v)", s.period)
	for {
		select {
		case <-ctx.Done():
			if s.ctrl.PendingReturn() {
				debug.Info("Shutdown with return-to-center still pending, abandoning")
			}
			return
		case <-ticker.C:
			done, err := s.ctrl.ProcessReturnToCenter()
			if err != nil {
				debug.Error(err)
				continue
			}
			if done && s.OnReturn != nil {
				s.OnReturn(s.ctrl.Position())
			}
		}
	}
}
