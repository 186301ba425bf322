package orchestration

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/viva-core/core/audio"
	"github.com/koscakluka/viva-core/core/clock"
)

var errPlaybackClosed = fmt.Errorf("playback %w", ErrSessionClosed)

// audioOutput schedules assistant audio back to back on a cursor that only
// moves forward. Each chunk becomes a unit with its own end timer; the unit
// set going from empty to non-empty is the play start edge and the last
// unit ending is the play end edge.
type audioOutput struct {
	device AudioOutput
	clock  clock.Clock

	onPlayStart func()
	onPlayEnd   func()

	mu         sync.Mutex
	opened     bool
	closed     bool
	deviceInfo audio.EncodingInfo
	resampler  *audio.Resampler
	cursor     time.Time
	units      map[uint64]clock.Timer
	nextUnit   uint64
	closeOnce  sync.Once
}

type scheduledUnit struct {
	Start    time.Time
	Duration time.Duration
}

func newAudioOutput(device AudioOutput, clk clock.Clock, onPlayStart, onPlayEnd func()) *audioOutput {
	return &audioOutput{
		device:      device,
		clock:       clk,
		onPlayStart: onPlayStart,
		onPlayEnd:   onPlayEnd,
		units:       map[uint64]clock.Timer{},
	}
}

// Initialize only checks that an output is configured. The device itself is
// opened by the first Play.
func (a *audioOutput) Initialize() error {
	if a == nil || a.device == nil {
		return fmt.Errorf("no audio output configured")
	}
	return nil
}

// Play decodes one base64 PCM chunk and schedules it right after the
// previous one, never earlier than now.
func (a *audioOutput) Play(encoded, mimeType string) (scheduledUnit, error) {
	info, err := audio.ParseMIMEType(mimeType)
	if err != nil {
		return scheduledUnit{}, fmt.Errorf("%w: %w", ErrAudioFormat, err)
	}
	if info.SampleRate != audio.PlaybackSampleRate {
		return scheduledUnit{}, fmt.Errorf("%w: expected %d Hz, got %d Hz", ErrAudioFormat, audio.PlaybackSampleRate, info.SampleRate)
	}

	pcm, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return scheduledUnit{}, fmt.Errorf("%w: invalid base64 payload: %w", ErrAudioFormat, err)
	}
	pcm = pcm[:len(pcm)-len(pcm)%2]

	duration := info.Duration(len(pcm))
	if duration <= 0 {
		return scheduledUnit{}, fmt.Errorf("%w: empty audio chunk", ErrAudioFormat)
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return scheduledUnit{}, errPlaybackClosed
	}
	if err := a.openLocked(); err != nil {
		a.mu.Unlock()
		return scheduledUnit{}, err
	}

	if !a.resampler.Passthrough() {
		pcm = audio.EncodeLinear16(a.resampler.Process(audio.DecodeLinear16(pcm)))
	}
	if err := a.device.SendAudio(pcm); err != nil {
		a.mu.Unlock()
		return scheduledUnit{}, fmt.Errorf("failed to write audio to output: %w", err)
	}

	now := a.clock.Now()
	start := a.cursor
	if start.Before(now) {
		start = now
	}
	end := start.Add(duration)
	a.cursor = end

	wasIdle := len(a.units) == 0
	a.nextUnit++
	id := a.nextUnit
	a.units[id] = a.clock.AfterFunc(end.Sub(now), func() { a.unitEnded(id) })
	onPlayStart := a.onPlayStart
	a.mu.Unlock()

	if wasIdle && onPlayStart != nil {
		onPlayStart()
	}
	return scheduledUnit{Start: start, Duration: duration}, nil
}

func (a *audioOutput) openLocked() error {
	if a.opened {
		return nil
	}
	if a.device == nil {
		return fmt.Errorf("no audio output configured")
	}

	if err := a.device.Open(); err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	a.deviceInfo = a.device.EncodingInfo()
	if a.deviceInfo.IsZero() {
		a.deviceInfo = audio.GetPlaybackEncodingInfo()
	}
	a.resampler = audio.NewResampler(audio.PlaybackSampleRate, a.deviceInfo.SampleRate)
	a.opened = true
	return nil
}

func (a *audioOutput) unitEnded(id uint64) {
	a.mu.Lock()
	if _, ok := a.units[id]; !ok || a.closed {
		a.mu.Unlock()
		return
	}
	delete(a.units, id)
	ended := len(a.units) == 0
	onPlayEnd := a.onPlayEnd
	a.mu.Unlock()

	if ended && onPlayEnd != nil {
		onPlayEnd()
	}
}

func (a *audioOutput) IsPlaying() bool {
	if a == nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.units) > 0
}

// Stop drops everything scheduled without a play end edge and moves the
// cursor to now.
func (a *audioOutput) Stop() {
	if a == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *audioOutput) stopLocked() {
	for id, timer := range a.units {
		timer.Stop()
		delete(a.units, id)
	}
	a.cursor = a.clock.Now()
	if a.opened {
		a.resampler.Reset()
		a.device.ClearBuffer()
	}
}

// Cleanup silences callbacks before releasing the device. Safe to call
// more than once.
func (a *audioOutput) Cleanup() {
	if a == nil {
		return
	}

	a.closeOnce.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.onPlayStart = nil
		a.onPlayEnd = nil
		a.stopLocked()
		a.closed = true
		if a.opened {
			a.device.Close()
			a.opened = false
		}
	})
}
