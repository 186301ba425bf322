package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const scopeName = "github.com/koscakluka/viva-core/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	captureChunksDropped   = counter("viva.capture.chunks.dropped", "Microphone chunks dropped because the encoder fell behind")
	playbackChunksRejected = counter("viva.playback.chunks.rejected", "Assistant audio chunks that could not be scheduled")
	conclusionsPersisted   = counter("viva.conclusions.persisted", "Conclusions saved with the backend")
)

func counter(name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}
