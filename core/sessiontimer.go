package orchestration

import (
	"fmt"
	"time"

	"github.com/koscakluka/viva-core/core/clock"
)

const (
	TimerWarningThreshold = 120
	TimerUrgentThreshold  = 60

	timerTick = time.Second
)

type TimerStatus string

const (
	TimerNormal  TimerStatus = "normal"
	TimerWarning TimerStatus = "warning"
	TimerUrgent  TimerStatus = "urgent"
)

// FormatTime renders seconds as MM:SS.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func TimerStatusFor(seconds int) TimerStatus {
	switch {
	case seconds <= TimerUrgentThreshold:
		return TimerUrgent
	case seconds <= TimerWarningThreshold:
		return TimerWarning
	}
	return TimerNormal
}

// sessionTimer counts the remaining time down once per second while the
// session is active and calls onExpired when it reaches zero.
type sessionTimer struct {
	store     *Store
	ticker    *clock.DelayedAction
	onExpired func()
	running   bool
}

func newSessionTimer(store *Store, clk clock.Clock, onExpired func()) *sessionTimer {
	return &sessionTimer{store: store, ticker: clock.NewDelayedAction(clk), onExpired: onExpired}
}

func (t *sessionTimer) Start() {
	if t.running {
		return
	}
	t.running = true
	t.ticker.Schedule(timerTick, t.tick)
}

func (t *sessionTimer) Stop() {
	t.running = false
	t.ticker.Cancel()
}

func (t *sessionTimer) tick() {
	if !t.running {
		return
	}
	if t.store.SessionState() != SessionActive {
		t.running = false
		return
	}

	remaining := t.store.TimeRemaining() - 1
	if remaining < 0 {
		remaining = 0
	}
	t.store.SetTimeRemaining(remaining)
	if remaining <= TimerWarningThreshold {
		t.store.SetTimerWarningShown()
	}

	if remaining == 0 {
		t.running = false
		logger.Info("session time is up")
		if t.onExpired != nil {
			t.onExpired()
		}
		return
	}
	t.ticker.Schedule(timerTick, t.tick)
}
