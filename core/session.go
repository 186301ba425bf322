// Package orchestration runs one voice viva: it starts the session with the
// backend, keeps the live channel to the examiner open, and arbitrates who
// speaks until the examiner concludes.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/viva-core/core/backend"
	"github.com/koscakluka/viva-core/core/clock"
	"github.com/koscakluka/viva-core/core/events"
	"github.com/koscakluka/viva-core/core/live"
	"github.com/koscakluka/viva-core/core/tools"
	"github.com/koscakluka/viva-core/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const concludePrompt = "The user needs to leave now. Please immediately evaluate the session so far and call the conclude_viva tool with your feedback."

type StartParams struct {
	StudentName    string
	Topic          string
	ClassLevel     int
	VoiceName      string
	EnableThinking bool
	ThinkingBudget int
}

// Session is one examination. Everything that changes turn or conclusion
// state runs on the session loop; the public methods may be called from any
// goroutine.
type Session struct {
	backend   Backend
	store     *Store
	newLive   LiveClientFactory
	baseClock clock.Clock
	clock     clock.Clock
	loop      *sessionLoop

	input      *audioInput
	output     *audioOutput
	turns      *turnCoordinator
	conclusion *conclusionHandler
	timer      *sessionTimer

	systemInstruction string
	turnDebounce      time.Duration
	gracePeriod       time.Duration
	frameDuration     time.Duration
	thinkingBudget    *int
	onError           func(error)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	live    LiveClient
	started bool
	closed  bool

	finalizeOnce sync.Once
	closeOnce    sync.Once
}

func NewSession(api Backend, input AudioInput, output AudioOutput, opts ...SessionOption) *Session {
	s := &Session{
		backend:       api,
		newLive:       NewLiveClientFactory(),
		baseClock:     clock.New(),
		loop:          newSessionLoop(),
		turnDebounce:  DefaultTurnDebounce,
		gracePeriod:   DefaultConclusionGracePeriod,
		frameDuration: DefaultFrameDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewStore(s.baseClock)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.clock = clock.WithExecutor(s.baseClock, func(f func()) { s.loop.Post("timer fired", f) })

	s.input = newAudioInput(input, s.frameDuration)
	s.output = newAudioOutput(output, s.clock, s.onPlayStart, s.onPlayEnd)
	s.conclusion = &conclusionHandler{
		store:    s.store,
		backend:  api,
		playback: s.output,
		grace:    clock.NewDelayedAction(s.clock),
		delay:    s.gracePeriod,
		ctx:      func() context.Context { return s.ctx },
		post:     s.loop.Post,
		respond:  s.sendToolResponse,
		onError:  s.reportError,
		finalize: s.finalize,
	}
	s.turns = newTurnCoordinator(s.store, s.output, s.clock, s.turnDebounce, s.conclusion.Holding)
	s.timer = newSessionTimer(s.store, s.clock, s.requestConclusion)

	s.loop.Start(s.ctx)
	return s
}

func (s *Session) Store() *Store { return s.store }

// Start asks the backend for a new session and joins it. ctx also bounds
// any later reconnects of the live channel.
func (s *Session) Start(ctx context.Context, params StartParams) error {
	ctx, span := tracer.Start(ctx, "start session")
	defer span.End()
	span.SetAttributes(attribute.String("viva.topic", params.Topic), attribute.Int("viva.class_level", params.ClassLevel))

	if err := s.begin(); err != nil {
		return err
	}

	budget := 0
	if params.EnableThinking {
		budget = params.ThinkingBudget
	}
	s.thinkingBudget = utils.Ptr(budget)

	resp, err := s.backend.StartSession(ctx, backend.StartRequest{
		StudentName:    params.StudentName,
		Topic:          params.Topic,
		ClassLevel:     params.ClassLevel,
		VoiceName:      params.VoiceName,
		EnableThinking: utils.Ptr(params.EnableThinking),
		ThinkingBudget: utils.Ptr(params.ThinkingBudget),
	})
	if err != nil {
		err = fmt.Errorf("failed to start session: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.failFromCaller(err)
		return err
	}

	voice := resp.VoiceName
	if voice == "" {
		voice = params.VoiceName
	}
	return s.join(ctx, SessionInfo{
		ID:              resp.SessionID,
		Credential:      resp.EphemeralToken,
		VoiceName:       voice,
		DurationMinutes: resp.SessionDurationMinutes,
		Model:           resp.Model,
	})
}

// Join connects to a session the backend already started.
func (s *Session) Join(ctx context.Context, info SessionInfo) error {
	if err := s.begin(); err != nil {
		return err
	}
	return s.join(ctx, info)
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	} else if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	return s.store.SetSessionState(SessionStarting)
}

func (s *Session) join(ctx context.Context, info SessionInfo) error {
	s.store.SetSessionInfo(info)

	if err := s.input.Initialize(); err != nil {
		s.failFromCaller(err)
		return err
	}
	if err := s.output.Initialize(); err != nil {
		s.failFromCaller(err)
		return err
	}

	declaration, err := tools.ConcludeDeclaration()
	if err != nil {
		s.failFromCaller(err)
		return err
	}

	client := s.newLive(info.Credential, live.SetupConfig{
		Model:             info.Model,
		VoiceName:         info.VoiceName,
		SystemInstruction: s.systemInstruction,
		Tools:             []live.FunctionDeclaration{declaration},
		Transcription:     true,
		ThinkingBudget:    s.thinkingBudget,
	}, live.Handlers{
		OnEvent: func(event events.Event) {
			s.loop.Post("handle "+string(event.Kind()), func() { s.handleEvent(event) })
		},
		OnDisconnected: func(error) {
			s.loop.Post("live channel lost", s.onLiveDisconnected)
		},
		OnReconnecting: func(attempt int, _ time.Duration) {
			s.store.SetReconnectAttempts(attempt)
		},
		OnFatal: func(err error) {
			s.loop.Post("live channel failed", func() { s.fail(err) })
		},
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.live = client
	s.mu.Unlock()

	if err := client.Connect(ctx); err != nil {
		s.failFromCaller(err)
		return err
	}
	return nil
}

func (s *Session) handleEvent(event events.Event) {
	if s.store.SessionState().IsTerminal() {
		return
	}

	switch event := event.(type) {
	case events.SetupComplete:
		s.onSetupComplete()
	case events.Transcript:
		if event.Text != "" {
			s.store.AppendTranscript(event.Role, event.Text, event.IsFinal)
		}
	case events.Audio:
		s.onAudio(event)
	case events.TurnComplete:
		s.store.FinalizeTranscript()
		s.turns.OnTurnComplete()
	case events.Interrupted:
		if s.conclusion.OnInterrupted() {
			return
		}
		s.turns.OnInterrupted()
	case events.ToolCall:
		s.conclusion.HandleToolCall(event)
	}
}

func (s *Session) onSetupComplete() {
	switch s.store.SessionState() {
	case SessionStarting:
		_ = s.store.SetSessionState(SessionActive)
		s.store.SetReconnectAttempts(0)
		s.turns.Arm()
		if err := s.input.StartRecording(s.ctx, s.onFrame); err != nil {
			s.fail(err)
			return
		}
		s.timer.Start()
		logger.Info("session active")
	case SessionActive:
		// A reconnect drops whatever the examiner was saying.
		s.store.SetReconnectAttempts(0)
		s.output.Stop()
		s.turns.Arm()
		logger.Info("live channel restored")
	}
}

func (s *Session) onLiveDisconnected() {
	if s.store.SessionState() != SessionActive {
		return
	}
	s.turns.Stop()
	s.output.Stop()
	s.store.SetAudioState(AudioProcessing)
}

func (s *Session) onAudio(event events.Audio) {
	s.turns.OnAudio()
	if _, err := s.output.Play(event.Data, event.MIMEType); err != nil {
		playbackChunksRejected.Add(s.ctx, 1)
		if errors.Is(err, ErrAudioFormat) {
			logger.Warn("dropping assistant audio", "error", err)
		} else {
			logger.Error("failed to play assistant audio", "error", err)
			s.reportError(err)
		}
		s.turns.OnPlaybackFailed(s.output.IsPlaying())
	}
}

func (s *Session) onPlayStart() {
	s.turns.OnPlayStart()
}

func (s *Session) onPlayEnd() {
	if s.conclusion.OnPlayEnd() {
		return
	}
	s.turns.OnPlayEnd()
}

// onFrame runs on the encoding worker. The audio state check is the only
// thing keeping the microphone quiet while the examiner speaks.
func (s *Session) onFrame(frame []byte) {
	if s.store.AudioState() != AudioRecording || s.store.Muted() {
		return
	}

	client := s.liveClient()
	if client == nil {
		return
	}
	if err := client.SendAudio(frame); err != nil {
		logger.Warn("failed to send audio frame", "error", err)
	}
}

// RequestConclusion asks the examiner to wrap up. Outside an active session
// it finalizes straight away.
func (s *Session) RequestConclusion() error {
	if !s.loop.Do("request conclusion", s.requestConclusion) {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) requestConclusion() {
	if s.store.SessionState() == SessionActive {
		if client := s.liveClient(); client != nil {
			err := client.SendText(concludePrompt)
			if err == nil {
				s.timer.Stop()
				_ = s.store.SetSessionState(SessionConcluding)
				return
			}
			logger.Warn("failed to ask for conclusion", "error", err)
		}
	}
	s.finalize()
}

// RefreshCredential swaps in a new ephemeral credential. The open channel
// keeps running and the credential is used from the next reconnect on.
func (s *Session) RefreshCredential(credential string) error {
	if err := live.ValidateCredential(credential); err != nil {
		return err
	}
	if s.store.SessionState().IsTerminal() {
		return ErrSessionClosed
	}
	if !s.store.RefreshCredential(credential) {
		return ErrNotStarted
	}
	if client := s.liveClient(); client != nil {
		return client.SetCredential(credential)
	}
	return nil
}

func (s *Session) ToggleMute() bool {
	return s.store.ToggleMute()
}

func (s *Session) sendToolResponse(response live.ToolResponse) error {
	client := s.liveClient()
	if client == nil {
		return live.ErrNotConnected
	}
	return client.SendToolResponse(response)
}

func (s *Session) finalize() {
	s.finalizeOnce.Do(func() {
		s.conclusion.Cancel()
		if err := s.release(); err != nil {
			logger.Warn("failed to release session resources", "error", err)
		}
		s.store.SetAudioState(AudioIdle)
		_ = s.store.SetSessionState(SessionCompleted)
		logger.Info("session completed")
	})
}

func (s *Session) fail(err error) {
	if s.store.SessionState().IsTerminal() {
		return
	}

	logger.Error("session failed", "error", err)
	s.reportError(err)
	s.conclusion.Cancel()
	if releaseErr := s.release(); releaseErr != nil {
		logger.Warn("failed to release session resources", "error", releaseErr)
	}
	s.store.SetAudioState(AudioIdle)
	_ = s.store.SetSessionState(SessionError)
}

// failFromCaller runs fail on the loop for code outside of it.
func (s *Session) failFromCaller(err error) {
	if !s.loop.Do("fail session", func() { s.fail(err) }) {
		s.reportError(err)
	}
}

func (s *Session) reportError(err error) {
	s.store.SetError(err)
	if s.onError != nil {
		s.onError(err)
	}
}

// release stops everything that produces or consumes audio. The devices
// stay open until Close.
func (s *Session) release() error {
	s.timer.Stop()
	s.turns.Stop()

	var errs error
	if client := s.liveClient(); client != nil {
		if err := client.Disconnect(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to disconnect live channel: %w", err))
		}
	}
	if err := s.input.StopRecording(); err != nil {
		errs = errors.Join(errs, err)
	}
	s.output.Stop()
	return errs
}

// Close tears the session down and releases both devices. The store keeps
// its last state. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		logger.Debug("closing session", "pending_steps", s.loop.queuedCount())
		if !s.loop.Do("close session", func() {
			s.conclusion.Cancel()
			err = s.release()
		}) {
			err = s.release()
		}
		s.loop.Stop()
		s.loop.AwaitDone()
		s.cancel()

		err = errors.Join(err, s.input.Cleanup())
		s.output.Cleanup()
	})
	return err
}

func (s *Session) liveClient() LiveClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}
