package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/viva-core/core/audio"
)

var errDeviceNotOpen = errors.New("device not open")

// CaptureDevice records 16 kHz mono linear16 audio from the default
// microphone.
type CaptureDevice struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device

	onAudio func(audio []byte)

	mu      sync.Mutex
	audioMu sync.RWMutex
}

func (c *CaptureDevice) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

// Open acquires the microphone. On most platforms this is where a denied
// permission surfaces.
func (c *CaptureDevice) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device != nil {
		return nil
	}

	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * audio.Channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(audio.CaptureSampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(audio.Channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	device, err := malgo.InitDevice(c.audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}

			c.audioMu.RLock()
			onAudio := c.onAudio
			c.audioMu.RUnlock()
			if onAudio != nil {
				onAudio(pInput[:n])
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	c.device = device
	return nil
}

// StartCapture delivers captured chunks to onAudio. The chunk is only valid
// for the duration of the call.
func (c *CaptureDevice) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return errDeviceNotOpen
	}

	c.audioMu.Lock()
	c.onAudio = onAudio
	c.audioMu.Unlock()

	if c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *CaptureDevice) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return errDeviceNotOpen
	}

	if c.device.IsStarted() {
		if err := c.device.Stop(); err != nil {
			return fmt.Errorf("failed to stop capture device: %w", err)
		}
	}

	c.audioMu.Lock()
	c.onAudio = nil
	c.audioMu.Unlock()
	return nil
}

// Close releases the microphone. It is safe to call more than once.
func (c *CaptureDevice) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}

	c.audioMu.Lock()
	c.onAudio = nil
	c.audioMu.Unlock()
}
