package orchestration

import (
	"testing"
	"time"

	"github.com/koscakluka/viva-core/core/clock/clocktest"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{seconds: 600, want: "10:00"},
		{seconds: 125, want: "02:05"},
		{seconds: 59, want: "00:59"},
		{seconds: 0, want: "00:00"},
		{seconds: -4, want: "00:00"},
	}

	for _, tt := range tests {
		if got := FormatTime(tt.seconds); got != tt.want {
			t.Fatalf("FormatTime(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestTimerStatusFor(t *testing.T) {
	tests := []struct {
		seconds int
		want    TimerStatus
	}{
		{seconds: 600, want: TimerNormal},
		{seconds: 121, want: TimerNormal},
		{seconds: 120, want: TimerWarning},
		{seconds: 61, want: TimerWarning},
		{seconds: 60, want: TimerUrgent},
		{seconds: 0, want: TimerUrgent},
	}

	for _, tt := range tests {
		if got := TimerStatusFor(tt.seconds); got != tt.want {
			t.Fatalf("TimerStatusFor(%d) = %s, want %s", tt.seconds, got, tt.want)
		}
	}
}

func newActiveStore(c *clocktest.Fake, seconds int) *Store {
	store := NewStore(c)
	_ = store.SetSessionState(SessionStarting)
	_ = store.SetSessionState(SessionActive)
	store.SetTimeRemaining(seconds)
	return store
}

func TestSessionTimerCountsDownAndWarns(t *testing.T) {
	fake := clocktest.NewFake()
	store := newActiveStore(fake, 122)
	timer := newSessionTimer(store, fake, nil)

	timer.Start()
	timer.Start()
	fake.Advance(time.Second)
	if store.TimeRemaining() != 121 || store.TimerWarningShown() {
		t.Fatalf("expected 121 seconds without warning, got %d", store.TimeRemaining())
	}

	fake.Advance(time.Second)
	if store.TimeRemaining() != 120 || !store.TimerWarningShown() {
		t.Fatalf("expected warning at 120 seconds, got %d", store.TimeRemaining())
	}
}

func TestSessionTimerExpires(t *testing.T) {
	fake := clocktest.NewFake()
	store := newActiveStore(fake, 3)
	expired := 0
	timer := newSessionTimer(store, fake, func() { expired++ })

	timer.Start()
	fake.Advance(10 * time.Second)

	if store.TimeRemaining() != 0 {
		t.Fatalf("expected timer to stop at zero, got %d", store.TimeRemaining())
	}
	if expired != 1 {
		t.Fatalf("expected one expiry, got %d", expired)
	}
	if fake.Pending() != 0 {
		t.Fatalf("expected no further ticks after expiry")
	}
}

func TestSessionTimerOnlyTicksWhileActive(t *testing.T) {
	fake := clocktest.NewFake()
	store := newActiveStore(fake, 300)
	timer := newSessionTimer(store, fake, nil)

	timer.Start()
	fake.Advance(2 * time.Second)
	_ = store.SetSessionState(SessionConcluding)
	fake.Advance(5 * time.Second)

	if store.TimeRemaining() != 298 {
		t.Fatalf("expected countdown to pause outside active, got %d", store.TimeRemaining())
	}

	timer.Stop()
	if fake.Pending() != 0 {
		t.Fatalf("expected stop to cancel the tick")
	}
}
