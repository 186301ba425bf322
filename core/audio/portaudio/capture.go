package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/viva-core/core/audio"
)

const captureSampleRate = 48000

var errDeviceNotOpen = errors.New("device not open")

type CaptureDevice struct {
	bufferSize int
	stream     *portaudio.Stream
	in         []float32

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewCaptureDevice reads bufferSize samples per callback.
func NewCaptureDevice(bufferSize int) *CaptureDevice {
	if bufferSize <= 0 {
		bufferSize = captureSampleRate / 50
	}
	return &CaptureDevice{bufferSize: bufferSize}
}

func (c *CaptureDevice) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: captureSampleRate, Format: audio.EncodingFloat32}
}

func (c *CaptureDevice) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}

	if err := acquire(); err != nil {
		return err
	}

	in := make([]float32, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(audio.Channels, 0, captureSampleRate, c.bufferSize, in)
	if err != nil {
		release()
		return fmt.Errorf("failed to open capture stream: %w", err)
	}

	c.stream = stream
	c.in = in
	return nil
}

func (c *CaptureDevice) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return errDeviceNotOpen
	} else if c.cancel != nil {
		return nil
	}

	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start capture stream: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.stopped = make(chan struct{})
	go c.read(ctx, c.stream, c.in, c.stopped, onAudio)
	return nil
}

func (c *CaptureDevice) read(ctx context.Context, stream *portaudio.Stream, in []float32, stopped chan struct{}, onAudio func([]byte)) {
	defer close(stopped)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			logger.Warn("failed to read from capture stream", "error", err)
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			return
		}
		onAudio(audio.EncodeFloat32(in))
	}
}

func (c *CaptureDevice) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked()
}

func (c *CaptureDevice) stopLocked() error {
	if c.cancel == nil {
		return nil
	}

	c.cancel()
	<-c.stopped
	c.cancel = nil
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture stream: %w", err)
	}
	return nil
}

func (c *CaptureDevice) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return
	}

	_ = c.stopLocked()
	if err := c.stream.Close(); err != nil {
		logger.Warn("failed to close capture stream", "error", err)
	}
	c.stream = nil
	release()
}
