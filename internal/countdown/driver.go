package countdown

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/eduverge/eduverge-backend/internal/model"
)

// State is the driver's position in the countdown lifecycle.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	// StateExpired means the expiry path won the submit claim. The driver
	// rests here; only MarkTerminal moves it on.
	StateExpired
	// StateSubmitting is entered exclusively through ClaimSubmit.
	StateSubmitting
	StateTerminal
)

// Driver runs one logical countdown timeline for an open test-taking view.
// It ticks once per second, recomputing remaining time from the session's
// fixed anchors, and fires the submit transition at most once, whether
// triggered by expiry or by an explicit user submit. The tick path performs
// no I/O; callbacks that do I/O run after the one-shot claim succeeds.
//
// The submitted flag is the correctness mechanism: stopping the ticker on
// claim is only an optimization. A tick that races a manual submit loses
// the CAS and becomes a no-op.
type Driver struct {
	session  *model.TestSession
	interval time.Duration
	now      func() time.Time

	// OnTick receives the freshly computed remaining seconds while Running.
	OnTick func(remaining int)
	// OnExpire runs once when the expiry path wins the submit claim.
	OnExpire func()

	state     atomic.Int32
	submitted atomic.Bool
}

// NewDriver creates a Driver for the given session ticking at 1s.
func NewDriver(session *model.TestSession) *Driver {
	return &Driver{
		session:  session,
		interval: time.Second,
		now:      time.Now,
	}
}

// State returns the driver's current state.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// Run drives the countdown until expiry, submission or ctx cancellation.
// Cancelling ctx (the view went away) stops the ticks with no further side
// effects. Run returns after the timeline reaches a dead end.
func (d *Driver) Run(ctx context.Context) {
	// Returned after the window already closed: skip Running entirely.
	if RemainingForSession(d.session, d.now()) == 0 {
		d.expire()
		return
	}

	d.state.Store(int32(StateRunning))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.submitted.Load() {
				// A manual submit claimed the transition between ticks.
				return
			}
			remaining := RemainingForSession(d.session, d.now())
			if remaining == 0 {
				ticker.Stop()
				d.expire()
				return
			}
			if d.OnTick != nil {
				d.OnTick(remaining)
			}
		}
	}
}

// ClaimSubmit claims the single submit transition for a manual submission.
// It returns false if expiry or another submit already claimed it, in which
// case the caller must not finalize.
func (d *Driver) ClaimSubmit() bool {
	if !d.submitted.CompareAndSwap(false, true) {
		return false
	}
	d.state.Store(int32(StateSubmitting))
	return true
}

// MarkTerminal records that finalization finished. No transition leaves it.
func (d *Driver) MarkTerminal() {
	d.state.Store(int32(StateTerminal))
}

func (d *Driver) expire() {
	if !d.submitted.CompareAndSwap(false, true) {
		return
	}
	d.state.Store(int32(StateExpired))
	if d.OnExpire != nil {
		d.OnExpire()
	}
}
