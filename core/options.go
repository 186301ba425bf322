package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/viva-core/core/audio"
	"github.com/koscakluka/viva-core/core/backend"
	"github.com/koscakluka/viva-core/core/clock"
	"github.com/koscakluka/viva-core/core/live"
)

type SessionOption func(*Session)

// AudioInput is a microphone. onAudio receives raw chunks in the device's
// encoding and must not be retained by the device after StopCapture.
type AudioInput interface {
	EncodingInfo() audio.EncodingInfo
	Open() error
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	Close()
}

// AudioOutput is a speaker accepting mono linear16 at its encoding's rate.
type AudioOutput interface {
	EncodingInfo() audio.EncodingInfo
	Open() error
	SendAudio(audio []byte) error
	ClearBuffer()
	Close()
}

// Backend starts sessions and saves their conclusions.
type Backend interface {
	StartSession(ctx context.Context, req backend.StartRequest) (*backend.StartResponse, error)
	ConcludeSession(ctx context.Context, req backend.ConcludeRequest) (*backend.ConcludeResponse, error)
}

// LiveClient is the channel to the examiner, see live.Client.
type LiveClient interface {
	Connect(ctx context.Context) error
	SendAudio(frame []byte) error
	SendText(text string) error
	SendToolResponse(response live.ToolResponse) error
	SetCredential(credential string) error
	Disconnect() error
}

type LiveClientFactory func(credential string, setup live.SetupConfig, handlers live.Handlers) LiveClient

// NewLiveClientFactory builds live.Client values with the given options.
func NewLiveClientFactory(opts ...live.Option) LiveClientFactory {
	return func(credential string, setup live.SetupConfig, handlers live.Handlers) LiveClient {
		clientOpts := append([]live.Option{}, opts...)
		clientOpts = append(clientOpts, live.WithHandlers(handlers))
		return live.NewClient(credential, setup, clientOpts...)
	}
}

func WithLiveClientFactory(factory LiveClientFactory) SessionOption {
	return func(s *Session) {
		if factory != nil {
			s.newLive = factory
		}
	}
}

func WithClock(c clock.Clock) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.baseClock = c
		}
	}
}

func WithStore(store *Store) SessionOption {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

func WithSystemInstruction(instruction string) SessionOption {
	return func(s *Session) { s.systemInstruction = instruction }
}

func WithTurnDebounce(d time.Duration) SessionOption {
	return func(s *Session) {
		if d >= 0 {
			s.turnDebounce = d
		}
	}
}

func WithConclusionGracePeriod(d time.Duration) SessionOption {
	return func(s *Session) {
		if d >= 0 {
			s.gracePeriod = d
		}
	}
}

func WithFrameDuration(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.frameDuration = d
		}
	}
}

// WithErrorCallback registers a callback for every user visible error. It
// is called on the session loop and should not block.
func WithErrorCallback(callback func(error)) SessionOption {
	return func(s *Session) { s.onError = callback }
}
