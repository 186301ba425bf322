package live

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const scopeName = "github.com/koscakluka/viva-core/core/live"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	framesSent        = counter("viva.live.audio_frames.sent", "Audio frames written to the live channel")
	framesDropped     = counter("viva.live.audio_frames.dropped", "Audio frames dropped because no channel was open")
	reconnectAttempts = counter("viva.live.reconnect_attempts", "Reconnect attempts after a failed or lost channel")
	protocolErrors    = counter("viva.live.protocol_errors", "Server messages that could not be decoded")
)

func counter(name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}
