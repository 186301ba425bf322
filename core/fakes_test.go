package orchestration

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/viva-core/core/audio"
	"github.com/koscakluka/viva-core/core/backend"
	"github.com/koscakluka/viva-core/core/live"
)

type fakeCapture struct {
	info     audio.EncodingInfo
	openErr  error
	startErr error

	mu        sync.Mutex
	onAudio   func([]byte)
	opened    int
	started   int
	stopped   int
	closed    int
	lastCtx   context.Context
	capturing bool
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{info: audio.GetDefaultEncodingInfo()}
}

func (f *fakeCapture) EncodingInfo() audio.EncodingInfo { return f.info }

func (f *fakeCapture) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened++
	return nil
}

func (f *fakeCapture) StartCapture(ctx context.Context, onAudio func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	f.onAudio = onAudio
	f.lastCtx = ctx
	f.capturing = true
	return nil
}

func (f *fakeCapture) StopCapture() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	f.capturing = false
	return nil
}

func (f *fakeCapture) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

// emit delivers chunk the way a device callback would, if capturing.
func (f *fakeCapture) emit(chunk []byte) {
	f.mu.Lock()
	onAudio, capturing := f.onAudio, f.capturing
	f.mu.Unlock()
	if capturing && onAudio != nil {
		onAudio(chunk)
	}
}

type fakePlayback struct {
	info    audio.EncodingInfo
	openErr error

	mu      sync.Mutex
	opened  int
	sent    [][]byte
	cleared int
	closed  int
}

func newFakePlayback() *fakePlayback {
	return &fakePlayback{info: audio.GetPlaybackEncodingInfo()}
}

func (f *fakePlayback) EncodingInfo() audio.EncodingInfo { return f.info }

func (f *fakePlayback) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened++
	return nil
}

func (f *fakePlayback) SendAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, pcm)
	return nil
}

func (f *fakePlayback) ClearBuffer() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakePlayback) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakePlayback) counts() (opened, sent, cleared, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened, len(f.sent), f.cleared, f.closed
}

type fakeBackend struct {
	startResp   backend.StartResponse
	startErr    error
	concludeErr error

	mu        sync.Mutex
	started   []backend.StartRequest
	concluded []backend.ConcludeRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{startResp: backend.StartResponse{
		SessionID:              "session-1",
		EphemeralToken:         "auth_tokens/test",
		Model:                  "gemini-live",
		SessionDurationMinutes: 10,
		VoiceName:              "Kore",
	}}
}

func (f *fakeBackend) StartSession(_ context.Context, req backend.StartRequest) (*backend.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, req)
	if f.startErr != nil {
		return nil, f.startErr
	}
	resp := f.startResp
	return &resp, nil
}

func (f *fakeBackend) ConcludeSession(_ context.Context, req backend.ConcludeRequest) (*backend.ConcludeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.concluded = append(f.concluded, req)
	if f.concludeErr != nil {
		return nil, f.concludeErr
	}
	return &backend.ConcludeResponse{Status: "completed", Score: req.Score, Feedback: req.Summary}, nil
}

func (f *fakeBackend) concludeCalls() []backend.ConcludeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.ConcludeRequest(nil), f.concluded...)
}

type fakeLive struct {
	credential string
	setup      live.SetupConfig
	handlers   live.Handlers
	connectErr error

	mu            sync.Mutex
	connected     int
	frames        [][]byte
	texts         []string
	toolResponses []live.ToolResponse
	disconnects   int
}

func (f *fakeLive) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected++
	return nil
}

func (f *fakeLive) SendAudio(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeLive) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeLive) SendToolResponse(response live.ToolResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toolResponses = append(f.toolResponses, response)
	return nil
}

func (f *fakeLive) SetCredential(credential string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credential = credential
	return nil
}

func (f *fakeLive) currentCredential() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credential
}

func (f *fakeLive) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeLive) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeLive) snapshot() (texts []string, responses []live.ToolResponse, disconnects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...), append([]live.ToolResponse(nil), f.toolResponses...), f.disconnects
}

// playbackChunk returns base64 24 kHz linear16 silence lasting d.
func playbackChunk(d time.Duration) string {
	samples := audio.GetPlaybackEncodingInfo().Samples(d)
	return base64.StdEncoding.EncodeToString(make([]byte, 2*samples))
}

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
