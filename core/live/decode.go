package live

import (
	"encoding/json"
	"fmt"

	"github.com/koscakluka/viva-core/core/events"
)

// Decode normalizes one raw server message into events. A message that is
// valid JSON but carries nothing recognizable yields no events. The order of
// the returned events is documented in package events.
func Decode(raw []byte) ([]events.Event, error) {
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &ProtocolError{Err: fmt.Errorf("failed to unmarshal: %w", err)}
	}

	var decoded []events.Event
	if msg.SetupComplete != nil {
		decoded = append(decoded, events.NewSetupComplete())
	}

	if sc := msg.ServerContent; sc != nil {
		if sc.Interrupted {
			decoded = append(decoded, events.NewInterrupted())
		}

		if t := sc.InputTranscription; t != nil && t.Text != "" {
			decoded = append(decoded, events.NewTranscript(events.RoleUser, t.Text, sc.TurnComplete))
		}

		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.Text != "" {
					decoded = append(decoded, events.NewTranscript(events.RoleAssistant, p.Text, sc.TurnComplete))
				}
				if p.InlineData != nil && p.InlineData.Data != "" {
					decoded = append(decoded, events.NewAudio(p.InlineData.Data, p.InlineData.MIMEType))
				}
			}
		}

		if t := sc.OutputTranscription; t != nil && t.Text != "" {
			decoded = append(decoded, events.NewTranscript(events.RoleAssistant, t.Text, sc.TurnComplete))
		}

		if sc.TurnComplete {
			decoded = append(decoded, events.NewTurnComplete())
		}
	}

	if msg.ToolCall != nil {
		for _, call := range msg.ToolCall.FunctionCalls {
			decoded = append(decoded, events.NewToolCall(call.ID, call.Name, call.Args))
		}
	}

	return decoded, nil
}
