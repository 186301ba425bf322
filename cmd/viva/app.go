package main

import (
	"context"
	"fmt"
	"time"

	orchestration "github.com/koscakluka/viva-core/core"
	"github.com/koscakluka/viva-core/core/audio/miniaudio"
	"github.com/koscakluka/viva-core/core/audio/portaudio"
	"github.com/koscakluka/viva-core/core/backend"
	"github.com/koscakluka/viva-core/core/live"
	"github.com/koscakluka/viva-core/internal/config"
)

type devices struct {
	input  orchestration.AudioInput
	output orchestration.AudioOutput
	close  func()
}

func (d devices) Close() {
	if d.close != nil {
		d.close()
	}
}

func openDevices(backendName string) (devices, error) {
	switch backendName {
	case config.AudioBackendPortaudio:
		return devices{
			input:  portaudio.NewCaptureDevice(0),
			output: portaudio.NewPlaybackDevice(0),
		}, nil
	case config.AudioBackendMiniaudio, "":
		audioCtx, err := miniaudio.NewContext()
		if err != nil {
			return devices{}, err
		}
		return devices{
			input:  audioCtx.CaptureDevice(),
			output: audioCtx.PlaybackDevice(),
			close:  audioCtx.Close,
		}, nil
	}
	return devices{}, fmt.Errorf("unknown audio backend %q", backendName)
}

func transportFor(name string) live.Transport {
	if name == config.TransportGenAI {
		return &live.GenAITransport{}
	}
	return &live.WebsocketTransport{}
}

const healthCheckTimeout = 5 * time.Second

type healthChecker interface {
	Health(ctx context.Context) (*backend.HealthResponse, error)
}

// checkBackend fails fast when the backend cannot be reached, before any
// audio device is opened.
func checkBackend(ctx context.Context, api healthChecker) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if _, err := api.Health(ctx); err != nil {
		return fmt.Errorf("backend unavailable: %w", err)
	}
	return nil
}
