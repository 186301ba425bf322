package orchestration

import (
	"errors"
	"fmt"
)

var (
	// ErrAudioFormat is returned for assistant audio that is not 24 kHz PCM.
	ErrAudioFormat = errors.New("unsupported assistant audio format")

	ErrSessionClosed      = errors.New("session is closed")
	ErrAlreadyStarted     = errors.New("session already started")
	ErrNotStarted         = errors.New("session not started")
	ErrInvalidTransition  = errors.New("invalid session state transition")
	ErrConclusionRecorded = errors.New("conclusion already recorded")
)

// PermissionError means the microphone could not be acquired. The session
// cannot start without it.
type PermissionError struct {
	Err error
}

func (e *PermissionError) Error() string {
	if e.Err == nil {
		return "microphone access denied"
	}
	return fmt.Sprintf("microphone access denied: %v", e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// PersistenceError means the conclusion could not be saved. The session is
// finalized anyway.
type PersistenceError struct {
	SessionID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save results of session %q: %v", e.SessionID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
