package orchestration

import (
	"time"

	"github.com/koscakluka/viva-core/core/clock"
)

const DefaultTurnDebounce = 500 * time.Millisecond

// turnCoordinator keeps the conversation half-duplex. The microphone is
// only armed again once the assistant's turn is complete and its audio has
// finished playing, after a short debounce that absorbs gaps between chunks
// of the same turn.
//
// All methods run on the session loop.
type turnCoordinator struct {
	store    *Store
	playback interface{ Stop() }
	switcher *clock.DelayedAction
	debounce time.Duration

	// hold reports whether the microphone must stay closed, e.g. while the
	// session is concluding.
	hold func() bool

	turnComplete bool
	playing      bool
}

func newTurnCoordinator(store *Store, playback interface{ Stop() }, clk clock.Clock, debounce time.Duration, hold func() bool) *turnCoordinator {
	if hold == nil {
		hold = func() bool { return false }
	}
	return &turnCoordinator{
		store:        store,
		playback:     playback,
		switcher:     clock.NewDelayedAction(clk),
		debounce:     debounce,
		hold:         hold,
		turnComplete: true,
	}
}

// Arm opens the microphone at the start of a session or after a reconnect.
func (t *turnCoordinator) Arm() {
	t.switcher.Cancel()
	t.turnComplete = true
	t.playing = false
	t.store.SetAudioState(AudioRecording)
}

func (t *turnCoordinator) OnAudio() {
	t.turnComplete = false
	t.switcher.Cancel()
	t.setPlaying()
}

func (t *turnCoordinator) OnPlayStart() {
	t.switcher.Cancel()
	t.setPlaying()
}

func (t *turnCoordinator) setPlaying() {
	if t.playing {
		return
	}
	t.playing = true
	t.store.SetAudioState(AudioPlaying)
}

func (t *turnCoordinator) OnTurnComplete() {
	t.turnComplete = true
	if !t.playing {
		t.scheduleRecording()
	}
}

func (t *turnCoordinator) OnPlayEnd() {
	t.playing = false
	if t.turnComplete {
		t.scheduleRecording()
	}
}

// OnPlaybackFailed handles a chunk that could not be scheduled. If nothing
// else is playing no play end will follow, so it is treated as one.
func (t *turnCoordinator) OnPlaybackFailed(stillPlaying bool) {
	if stillPlaying {
		return
	}
	t.OnPlayEnd()
}

// OnInterrupted stops the assistant at once and hands the turn to the
// user without waiting for the debounce.
func (t *turnCoordinator) OnInterrupted() {
	t.switcher.Cancel()
	t.playback.Stop()
	t.playing = false
	t.turnComplete = true
	if t.hold() {
		t.store.SetAudioState(AudioIdle)
		return
	}
	t.store.SetAudioState(AudioRecording)
}

func (t *turnCoordinator) scheduleRecording() {
	if t.hold() {
		return
	}

	t.switcher.Schedule(t.debounce, func() {
		if t.playing || !t.turnComplete || t.hold() {
			return
		}
		t.store.SetAudioState(AudioRecording)
	})
}

// Stop cancels a pending switch back to recording.
func (t *turnCoordinator) Stop() {
	t.switcher.Cancel()
	t.playing = false
}
