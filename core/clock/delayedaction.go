package clock

import (
	"sync"
	"time"
)

// DelayedAction runs at most one scheduled callback at a time. Scheduling
// again replaces the pending callback and Cancel discards it. A callback that
// was already handed to the timer goroutine but lost the race against Cancel
// or a newer Schedule is dropped, so stale callbacks never run.
type DelayedAction struct {
	clock Clock

	mu         sync.Mutex
	timer      Timer
	generation uint64
}

func NewDelayedAction(c Clock) *DelayedAction {
	if c == nil {
		c = New()
	}
	return &DelayedAction{clock: c}
}

// Schedule arranges for f to run after d, replacing any pending callback.
func (a *DelayedAction) Schedule(d time.Duration, f func()) {
	if a == nil || f == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	a.generation++
	generation := a.generation
	a.timer = a.clock.AfterFunc(d, func() {
		a.mu.Lock()
		if a.generation != generation {
			a.mu.Unlock()
			return
		}
		a.timer = nil
		a.mu.Unlock()

		f()
	})
}

// Cancel discards the pending callback, reporting whether one was pending.
func (a *DelayedAction) Cancel() bool {
	if a == nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pending := a.timer != nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.generation++
	return pending
}

// Pending reports whether a callback is scheduled and has not run yet.
func (a *DelayedAction) Pending() bool {
	if a == nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}
