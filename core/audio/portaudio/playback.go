package portaudio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/viva-core/core/audio"
)

// PlaybackDevice writes 24 kHz linear16 audio through a blocking stream fed
// by its own goroutine. Underruns are written as silence.
type PlaybackDevice struct {
	bufferSize int
	stream     *portaudio.Stream
	out        []int16

	mu      sync.Mutex
	audioMu sync.Mutex
	pending []int16

	closeCh chan struct{}
	done    chan struct{}
}

func NewPlaybackDevice(bufferSize int) *PlaybackDevice {
	if bufferSize <= 0 {
		bufferSize = audio.PlaybackSampleRate / 50
	}
	return &PlaybackDevice{bufferSize: bufferSize}
}

func (c *PlaybackDevice) EncodingInfo() audio.EncodingInfo {
	return audio.GetPlaybackEncodingInfo()
}

func (c *PlaybackDevice) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}

	if err := acquire(); err != nil {
		return err
	}

	out := make([]int16, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(0, audio.Channels, audio.PlaybackSampleRate, c.bufferSize, out)
	if err != nil {
		release()
		return fmt.Errorf("failed to open playback stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		release()
		return fmt.Errorf("failed to start playback stream: %w", err)
	}

	c.stream = stream
	c.out = out
	c.closeCh = make(chan struct{})
	c.done = make(chan struct{})
	go c.write(stream, out, c.closeCh, c.done)
	return nil
}

func (c *PlaybackDevice) write(stream *portaudio.Stream, out []int16, closeCh, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-closeCh:
			return
		default:
		}

		c.audioMu.Lock()
		n := copy(out, c.pending)
		c.pending = c.pending[n:]
		c.audioMu.Unlock()
		clear(out[n:])

		if err := stream.Write(); err != nil && err != portaudio.OutputUnderflowed {
			logger.Warn("failed to write to playback stream", "error", err)
		}
	}
}

func (c *PlaybackDevice) SendAudio(pcm []byte) error {
	c.mu.Lock()
	open := c.stream != nil
	c.mu.Unlock()
	if !open {
		return errDeviceNotOpen
	}

	samples := audio.DecodeLinear16(pcm)
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.pending = append(c.pending, samples...)
	return nil
}

func (c *PlaybackDevice) ClearBuffer() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.pending = nil
}

func (c *PlaybackDevice) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return
	}

	close(c.closeCh)
	<-c.done
	if err := c.stream.Stop(); err != nil {
		logger.Warn("failed to stop playback stream", "error", err)
	}
	if err := c.stream.Close(); err != nil {
		logger.Warn("failed to close playback stream", "error", err)
	}
	c.stream = nil
	c.ClearBuffer()
	release()
}
