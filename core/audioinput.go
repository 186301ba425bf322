package orchestration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/viva-core/core/audio"
)

const (
	DefaultFrameDuration = 100 * time.Millisecond

	captureQueueCapacity = 64
)

var errCaptureNotInitialized = errors.New("audio input is not initialized")

// audioInput owns the microphone. Device chunks are copied and handed to a
// single encoding worker, which turns them into fixed 16 kHz frames off the
// session loop.
type audioInput struct {
	device        AudioInput
	frameDuration time.Duration

	mu          sync.Mutex
	initialized bool
	recording   bool
	closed      bool
	cancel      context.CancelFunc
	workerDone  chan struct{}

	// chunksMu guards chunks against the device callback racing a stop.
	chunksMu sync.RWMutex
	chunks   chan []byte
}

func newAudioInput(device AudioInput, frameDuration time.Duration) *audioInput {
	if frameDuration <= 0 {
		frameDuration = DefaultFrameDuration
	}
	return &audioInput{device: device, frameDuration: frameDuration}
}

// Initialize acquires the microphone. Any failure is a PermissionError.
func (a *audioInput) Initialize() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrSessionClosed
	}
	if a.initialized {
		return nil
	}
	if a.device == nil {
		return &PermissionError{Err: errors.New("no audio input configured")}
	}
	if err := a.device.Open(); err != nil {
		return &PermissionError{Err: err}
	}
	a.initialized = true
	return nil
}

// StartRecording starts delivering frames to onFrame from the encoding
// worker. It does nothing if already recording.
func (a *audioInput) StartRecording(ctx context.Context, onFrame func(frame []byte)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrSessionClosed
	} else if !a.initialized {
		return errCaptureNotInitialized
	} else if a.recording {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	chunks := make(chan []byte, captureQueueCapacity)
	done := make(chan struct{})
	encoder := audio.NewFrameEncoder(a.device.EncodingInfo(), a.frameDuration)

	a.chunksMu.Lock()
	a.chunks = chunks
	a.chunksMu.Unlock()

	go func() {
		defer close(done)
		run := panicSafeNamedWorker("audio encoding", func(ctx context.Context) error {
			for chunk := range chunks {
				if ctx.Err() != nil {
					continue
				}
				for _, frame := range encoder.Encode(chunk) {
					onFrame(frame)
				}
			}
			return nil
		})
		if err := run(workerCtx); err != nil {
			logger.Error("audio encoding stopped", "error", err)
		}
	}()

	if err := a.device.StartCapture(workerCtx, a.onDeviceAudio); err != nil {
		cancel()
		a.closeChunks()
		<-done
		return fmt.Errorf("failed to start audio capture: %w", err)
	}

	a.recording = true
	a.cancel = cancel
	a.workerDone = done
	return nil
}

func (a *audioInput) onDeviceAudio(chunk []byte) {
	a.chunksMu.RLock()
	defer a.chunksMu.RUnlock()
	if a.chunks == nil {
		return
	}

	select {
	case a.chunks <- bytes.Clone(chunk):
	default:
		captureChunksDropped.Add(context.Background(), 1)
		logger.Warn("dropping microphone audio, encoder is behind", "bytes", len(chunk))
	}
}

func (a *audioInput) closeChunks() {
	a.chunksMu.Lock()
	defer a.chunksMu.Unlock()
	if a.chunks != nil {
		close(a.chunks)
		a.chunks = nil
	}
}

// StopRecording stops frame delivery and waits for the worker. The device
// stays open for a quick restart.
func (a *audioInput) StopRecording() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopLocked()
}

func (a *audioInput) stopLocked() error {
	if !a.recording {
		return nil
	}
	a.recording = false

	err := a.device.StopCapture()
	a.cancel()
	a.closeChunks()
	<-a.workerDone

	if err != nil {
		return fmt.Errorf("failed to stop audio capture: %w", err)
	}
	return nil
}

func (a *audioInput) IsRecording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recording
}

// Cleanup stops recording and releases the device. Safe to call more than
// once.
func (a *audioInput) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	err := a.stopLocked()
	if a.initialized {
		a.device.Close()
		a.initialized = false
	}
	return err
}
