// Package clock provides the time source and the cancelable delayed action
// shared by every timer in the session core (turn debounce, reconnect
// backoff, conclusion grace period and the session countdown).
package clock

import "time"

// Clock is a source of time and one-shot timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending one-shot callback. Stop reports whether the call
// prevented the callback from running.
type Timer interface {
	Stop() bool
}

type realClock struct{}

// New returns a Clock backed by the runtime timers.
func New() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// WithExecutor returns a clock whose timer callbacks are handed to exec
// instead of running on the timer goroutine. The session uses it to funnel
// every deferred callback into its single control flow.
func WithExecutor(base Clock, exec func(func())) Clock {
	if exec == nil {
		return base
	}
	return executorClock{base: base, exec: exec}
}

type executorClock struct {
	base Clock
	exec func(func())
}

func (c executorClock) Now() time.Time { return c.base.Now() }

func (c executorClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.base.AfterFunc(d, func() { c.exec(f) })
}
