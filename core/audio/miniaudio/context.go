// Package miniaudio provides capture and playback devices backed by malgo.
package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Context owns the malgo context shared by the capture and playback devices.
// Devices must be closed before the context.
type Context struct {
	audioContext *malgo.AllocatedContext
	closeOnce    sync.Once
}

func NewContext() (*Context, error) {
	config := malgo.ContextConfig{}
	config.ThreadPriority = malgo.ThreadPriorityRealtime

	audioCtx, err := malgo.InitContext(nil, config, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	return &Context{audioContext: audioCtx}, nil
}

// CaptureDevice returns an unopened microphone device.
func (c *Context) CaptureDevice() *CaptureDevice {
	return &CaptureDevice{audioContext: c.audioContext}
}

// PlaybackDevice returns an unopened speaker device.
func (c *Context) PlaybackDevice() *PlaybackDevice {
	return &PlaybackDevice{audioContext: c.audioContext}
}

func (c *Context) Close() {
	c.closeOnce.Do(func() {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
	})
}
