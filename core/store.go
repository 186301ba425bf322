package orchestration

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/koscakluka/viva-core/core/clock"
	"github.com/koscakluka/viva-core/core/events"
)

type SessionState string

const (
	SessionIdle       SessionState = "idle"
	SessionStarting   SessionState = "starting"
	SessionActive     SessionState = "active"
	SessionConcluding SessionState = "concluding"
	SessionCompleted  SessionState = "completed"
	SessionError      SessionState = "error"
)

// IsTerminal reports whether the session cannot move on from s.
func (s SessionState) IsTerminal() bool {
	return s == SessionCompleted || s == SessionError
}

func (s SessionState) rank() int {
	switch s {
	case SessionStarting:
		return 1
	case SessionActive:
		return 2
	case SessionConcluding:
		return 3
	case SessionCompleted:
		return 4
	}
	return 0
}

type AudioState string

const (
	AudioIdle       AudioState = "idle"
	AudioRecording  AudioState = "recording"
	AudioPlaying    AudioState = "playing"
	AudioProcessing AudioState = "processing"
)

type SessionInfo struct {
	ID              string
	Credential      string
	VoiceName       string
	DurationMinutes int
	Model           string
}

type TranscriptEntry struct {
	ID        string
	Role      events.Role
	Text      string
	Timestamp time.Time
	IsFinal   bool
}

type ConclusionResult struct {
	Score        float64
	Total        int
	Summary      string
	Strengths    []string
	Improvements []string
}

// Snapshot is a copy of the store contents. Listeners and callers may keep
// it; later updates never change it.
type Snapshot struct {
	Info              *SessionInfo
	SessionState      SessionState
	AudioState        AudioState
	Muted             bool
	ReconnectAttempts int
	Transcript        []TranscriptEntry
	TimeRemaining     int
	TimerWarningShown bool
	Conclusion        *ConclusionResult
	Error             string
}

// Store is the single source of truth for one session. Every method updates
// one field under the lock and then notifies listeners with a fresh
// snapshot.
type Store struct {
	clock clock.Clock

	mu            sync.Mutex
	state         Snapshot
	err           error
	lastTimestamp time.Time

	notifyMu     sync.Mutex
	listeners    map[int]func(Snapshot)
	nextListener int
}

func NewStore(c clock.Clock) *Store {
	if c == nil {
		c = clock.New()
	}
	return &Store{clock: c, state: initialSnapshot(), listeners: map[int]func(Snapshot){}}
}

func initialSnapshot() Snapshot {
	return Snapshot{SessionState: SessionIdle, AudioState: AudioIdle}
}

// Subscribe registers fn to be called after every change. The returned
// function removes it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}

	s.notifyMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.notifyMu.Unlock()

	return func() {
		s.notifyMu.Lock()
		delete(s.listeners, id)
		s.notifyMu.Unlock()
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snapshot := s.state
	snapshot.Transcript = slices.Clone(s.state.Transcript)
	if s.state.Info != nil {
		snapshot.Info = &SessionInfo{}
		_ = copier.Copy(snapshot.Info, s.state.Info)
	}
	if s.state.Conclusion != nil {
		snapshot.Conclusion = &ConclusionResult{}
		_ = copier.CopyWithOption(snapshot.Conclusion, s.state.Conclusion, copier.Option{DeepCopy: true})
	}
	return snapshot
}

func (s *Store) update(mutate func() bool) {
	s.mu.Lock()
	changed := mutate()
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if len(s.listeners) == 0 {
		return
	}

	snapshot := s.Snapshot()
	for _, listener := range s.listeners {
		listener(snapshot)
	}
}

// SetSessionInfo stores the session identity and resets the countdown to
// its declared duration.
func (s *Store) SetSessionInfo(info SessionInfo) {
	s.update(func() bool {
		s.state.Info = &info
		s.state.TimeRemaining = info.DurationMinutes * 60
		s.state.TimerWarningShown = false
		return true
	})
}

func (s *Store) SessionInfo() (SessionInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Info == nil {
		return SessionInfo{}, false
	}
	return *s.state.Info, true
}

func (s *Store) RefreshCredential(credential string) bool {
	refreshed := false
	s.update(func() bool {
		if s.state.Info == nil {
			return false
		}
		s.state.Info.Credential = credential
		refreshed = true
		return true
	})
	return refreshed
}

func (s *Store) SessionState() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SessionState
}

// SetSessionState moves the session forward. Completed and error are final
// and no state moves backwards, except that error is reachable from any
// non-terminal state.
func (s *Store) SetSessionState(next SessionState) error {
	var err error
	s.update(func() bool {
		current := s.state.SessionState
		switch {
		case current == next:
			return false
		case current.IsTerminal():
			err = fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, next)
			return false
		case next != SessionError && next.rank() < current.rank():
			err = fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, next)
			return false
		}
		s.state.SessionState = next
		return true
	})
	return err
}

func (s *Store) AudioState() AudioState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AudioState
}

func (s *Store) SetAudioState(state AudioState) {
	s.update(func() bool {
		if s.state.AudioState == state {
			return false
		}
		s.state.AudioState = state
		return true
	})
}

func (s *Store) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Muted
}

// ToggleMute flips the mute flag and returns the new value.
func (s *Store) ToggleMute() bool {
	var muted bool
	s.update(func() bool {
		s.state.Muted = !s.state.Muted
		muted = s.state.Muted
		return true
	})
	return muted
}

func (s *Store) SetReconnectAttempts(attempts int) {
	s.update(func() bool {
		if s.state.ReconnectAttempts == attempts {
			return false
		}
		s.state.ReconnectAttempts = attempts
		return true
	})
}

// AppendTranscript adds an entry and returns its ID. Timestamps strictly
// increase even when the clock does not move between calls.
func (s *Store) AppendTranscript(role events.Role, text string, isFinal bool) string {
	id := uuid.NewString()
	s.update(func() bool {
		timestamp := s.clock.Now()
		if !timestamp.After(s.lastTimestamp) {
			timestamp = s.lastTimestamp.Add(time.Nanosecond)
		}
		s.lastTimestamp = timestamp

		s.state.Transcript = append(s.state.Transcript, TranscriptEntry{
			ID:        id,
			Role:      role,
			Text:      text,
			Timestamp: timestamp,
			IsFinal:   isFinal,
		})
		return true
	})
	return id
}

// FinalizeTranscript marks every entry that is still open as final.
func (s *Store) FinalizeTranscript() {
	s.update(func() bool {
		changed := false
		for i := range s.state.Transcript {
			if !s.state.Transcript[i].IsFinal {
				s.state.Transcript[i].IsFinal = true
				changed = true
			}
		}
		return changed
	})
}

func (s *Store) TimeRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TimeRemaining
}

func (s *Store) SetTimeRemaining(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	s.update(func() bool {
		if s.state.TimeRemaining == seconds {
			return false
		}
		s.state.TimeRemaining = seconds
		return true
	})
}

func (s *Store) TimerWarningShown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TimerWarningShown
}

func (s *Store) SetTimerWarningShown() {
	s.update(func() bool {
		if s.state.TimerWarningShown {
			return false
		}
		s.state.TimerWarningShown = true
		return true
	})
}

// SetConclusion records the result. Only the first result is kept.
func (s *Store) SetConclusion(result ConclusionResult) error {
	var err error
	s.update(func() bool {
		if s.state.Conclusion != nil {
			err = ErrConclusionRecorded
			return false
		}
		stored := &ConclusionResult{}
		_ = copier.CopyWithOption(stored, &result, copier.Option{DeepCopy: true})
		s.state.Conclusion = stored
		return true
	})
	return err
}

func (s *Store) Conclusion() (ConclusionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Conclusion == nil {
		return ConclusionResult{}, false
	}
	return *s.state.Conclusion, true
}

// SetError records the user visible error. A nil error clears it.
func (s *Store) SetError(err error) {
	s.update(func() bool {
		s.err = err
		if err == nil {
			s.state.Error = ""
		} else {
			s.state.Error = err.Error()
		}
		return true
	})
}

func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Reset returns the store to its initial state, keeping listeners.
func (s *Store) Reset() {
	s.update(func() bool {
		s.state = initialSnapshot()
		s.err = nil
		return true
	})
}
