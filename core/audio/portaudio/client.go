// Package portaudio provides capture and playback devices backed by
// PortAudio. The microphone is read as 48 kHz float32, the format most host
// APIs expose natively, and converted downstream.
package portaudio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/viva-core/core/audio/portaudio"

var logger = otelslog.NewLogger(scopeName)

var (
	refMu    sync.Mutex
	refCount int
)

// acquire initializes PortAudio for the first open device.
func acquire() error {
	refMu.Lock()
	defer refMu.Unlock()

	if refCount == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize PortAudio: %w", err)
		}
	}
	refCount++
	return nil
}

// release terminates PortAudio once the last device is closed.
func release() {
	refMu.Lock()
	defer refMu.Unlock()

	if refCount == 0 {
		return
	}
	refCount--
	if refCount == 0 {
		if err := portaudio.Terminate(); err != nil {
			logger.Warn("failed to terminate PortAudio", "error", err)
		}
	}
}
