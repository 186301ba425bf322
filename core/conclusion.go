package orchestration

import (
	"context"
	"errors"
	"time"

	"github.com/koscakluka/viva-core/core/backend"
	"github.com/koscakluka/viva-core/core/clock"
	"github.com/koscakluka/viva-core/core/events"
	"github.com/koscakluka/viva-core/core/live"
	"github.com/koscakluka/viva-core/core/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultConclusionGracePeriod = 300 * time.Millisecond

var errMissingSessionID = errors.New("session has no ID")

// conclusionHandler reacts to the examiner's conclude_viva call. It saves the
// result, then waits for the goodbye audio that arrives alongside the call
// before finalizing. The session is finalized exactly once whichever path
// gets there first.
//
// All methods except the persistence call itself run on the session loop.
type conclusionHandler struct {
	store    *Store
	backend  Backend
	playback interface{ IsPlaying() bool }
	grace    *clock.DelayedAction
	delay    time.Duration

	ctx      func() context.Context
	post     func(name string, run func()) bool
	respond  func(live.ToolResponse) error
	onError  func(error)
	finalize func()

	started   bool
	pending   bool
	finalized bool
}

// Holding reports whether a conclusion is under way and the microphone must
// stay closed.
func (h *conclusionHandler) Holding() bool {
	return h.started && !h.finalized
}

func (h *conclusionHandler) HandleToolCall(call events.ToolCall) {
	if call.Name != tools.ConcludeName {
		logger.Warn("ignoring unknown tool call", "tool", call.Name)
		h.sendResponse(call, map[string]any{"error": "unknown tool " + call.Name})
		return
	}
	if h.started || h.finalized {
		logger.Info("ignoring repeated conclusion", "call_id", call.ID)
		return
	}
	h.started = true
	_ = h.store.SetSessionState(SessionConcluding)

	args := tools.ParseConcludeArgs(call.Args)
	info, ok := h.store.SessionInfo()
	if !ok || info.ID == "" {
		h.persisted(call, args, &PersistenceError{Err: errMissingSessionID})
		return
	}

	request := backend.ConcludeRequest{
		SessionID:          info.ID,
		Score:              args.Score,
		Summary:            args.Summary,
		StrongPoints:       args.StrongPoints,
		AreasOfImprovement: args.AreasOfImprovement,
	}
	go func() {
		ctx, span := tracer.Start(h.ctx(), "persist conclusion")
		defer span.End()
		span.SetAttributes(attribute.String("viva.session_id", info.ID), attribute.Float64("viva.score", args.Score))

		_, err := h.backend.ConcludeSession(ctx, request)
		if err != nil {
			err = &PersistenceError{SessionID: info.ID, Err: err}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			conclusionsPersisted.Add(ctx, 1)
		}
		h.post("conclusion persisted", func() { h.persisted(call, args, err) })
	}()
}

func (h *conclusionHandler) persisted(call events.ToolCall, args tools.ConcludeArgs, err error) {
	if h.finalized {
		return
	}

	if err != nil {
		logger.Error("failed to save conclusion", "error", err)
		h.onError(err)
		h.finish()
		return
	}

	_ = h.store.SetConclusion(ConclusionResult{
		Score:        args.Score,
		Total:        tools.ScoreTotal,
		Summary:      args.Summary,
		Strengths:    args.StrongPoints,
		Improvements: args.AreasOfImprovement,
	})
	h.sendResponse(call, map[string]any{"status": "saved"})

	h.grace.Schedule(h.delay, h.graceElapsed)
}

func (h *conclusionHandler) graceElapsed() {
	if h.finalized {
		return
	}
	if h.playback.IsPlaying() {
		logger.Debug("waiting for closing audio before finalizing")
		h.pending = true
		return
	}
	h.finish()
}

// OnPlayEnd finalizes a conclusion that was waiting for audio. It reports
// whether it did.
func (h *conclusionHandler) OnPlayEnd() bool {
	if !h.pending {
		return false
	}
	h.finish()
	return true
}

// OnInterrupted finalizes a waiting conclusion. The interruption already
// stopped playback so no play end edge will follow.
func (h *conclusionHandler) OnInterrupted() bool {
	if !h.pending {
		return false
	}
	h.finish()
	return true
}

func (h *conclusionHandler) Cancel() {
	h.grace.Cancel()
	h.pending = false
	h.finalized = true
}

func (h *conclusionHandler) finish() {
	if h.finalized {
		return
	}
	h.finalized = true
	h.pending = false
	h.grace.Cancel()
	h.finalize()
}

func (h *conclusionHandler) sendResponse(call events.ToolCall, response map[string]any) {
	if h.respond == nil {
		return
	}
	if err := h.respond(live.ToolResponse{ID: call.ID, Name: call.Name, Response: response}); err != nil {
		logger.Warn("failed to answer tool call", "tool", call.Name, "error", err)
	}
}
