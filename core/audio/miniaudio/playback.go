package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/viva-core/core/audio"
)

// PlaybackDevice plays 24 kHz mono linear16 audio on the default speaker.
// Audio is queued in a buffer the device callback drains; underruns are
// filled with silence.
type PlaybackDevice struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device

	leftoverAudio []byte

	mu      sync.Mutex
	audioMu sync.Mutex
}

func (c *PlaybackDevice) EncodingInfo() audio.EncodingInfo {
	return audio.GetPlaybackEncodingInfo()
}

func (c *PlaybackDevice) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device != nil {
		return nil
	}

	sampleRate := uint32(audio.PlaybackSampleRate)
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * audio.Channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = sampleRate
	config.Playback.Format = format
	config.Playback.Channels = uint32(audio.Channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = sampleRate / 50 // 20ms
	config.Periods = 4

	device, err := malgo.InitDevice(
		c.audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	c.device = device
	return nil
}

func (c *PlaybackDevice) SendAudio(audio []byte) error {
	c.mu.Lock()
	open := c.device != nil
	c.mu.Unlock()
	if !open {
		return errDeviceNotOpen
	}

	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = append(c.leftoverAudio, audio...)
	return nil
}

// ClearBuffer drops queued audio so playback goes silent within one period.
func (c *PlaybackDevice) ClearBuffer() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = nil
}

func (c *PlaybackDevice) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.ClearBuffer()
}

func (c *PlaybackDevice) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame
		if need > len(pOutput) {
			need = len(pOutput)
		}

		c.audioMu.Lock()
		n := copy(pOutput[:need], c.leftoverAudio)
		c.leftoverAudio = c.leftoverAudio[n:]
		if len(c.leftoverAudio) == 0 {
			c.leftoverAudio = nil
		}
		c.audioMu.Unlock()

		clear(pOutput[n:need])
	}
}
