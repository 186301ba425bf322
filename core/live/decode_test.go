package live

import (
	"errors"
	"testing"

	"github.com/koscakluka/viva-core/core/events"
)

func TestDecode(t *testing.T) {
	testCases := []struct {
		name  string
		raw   string
		kinds []events.Kind
	}{
		{name: "setup complete", raw: `{"setupComplete":{}}`, kinds: []events.Kind{events.KindSetupComplete}},
		{name: "unknown message", raw: `{"usageMetadata":{"totalTokenCount":3}}`, kinds: nil},
		{
			name: "text and audio parts keep message order",
			raw: `{"serverContent":{"modelTurn":{"parts":[
				{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AAAA"}},
				{"text":"Hello"}
			]}}}`,
			kinds: []events.Kind{events.KindAudio, events.KindTranscript},
		},
		{
			name:  "interrupted comes before parts",
			raw:   `{"serverContent":{"interrupted":true,"modelTurn":{"parts":[{"text":"late"}]}}}`,
			kinds: []events.Kind{events.KindInterrupted, events.KindTranscript},
		},
		{
			name:  "turn complete comes after parts",
			raw:   `{"serverContent":{"turnComplete":true,"modelTurn":{"parts":[{"text":"done"}]}}}`,
			kinds: []events.Kind{events.KindTranscript, events.KindTurnComplete},
		},
		{
			name: "transcriptions wrap model parts",
			raw: `{"serverContent":{
				"inputTranscription":{"text":"what is a vector"},
				"outputTranscription":{"text":"A vector is"},
				"modelTurn":{"parts":[{"inlineData":{"data":"AAAA"}}]}
			}}`,
			kinds: []events.Kind{events.KindTranscript, events.KindAudio, events.KindTranscript},
		},
		{
			name:  "tool calls come last in order",
			raw:   `{"toolCall":{"functionCalls":[{"id":"a","name":"first"},{"id":"b","name":"second"}]},"setupComplete":{}}`,
			kinds: []events.Kind{events.KindSetupComplete, events.KindToolCall, events.KindToolCall},
		},
		{
			name:  "empty parts are skipped",
			raw:   `{"serverContent":{"modelTurn":{"parts":[{"text":""},{"inlineData":{"data":""}}]}}}`,
			kinds: nil,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			decoded, err := Decode([]byte(testCase.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(decoded) != len(testCase.kinds) {
				t.Fatalf("expected %d events, got %d: %v", len(testCase.kinds), len(decoded), decoded)
			}
			for i, event := range decoded {
				if event.Kind() != testCase.kinds[i] {
					t.Fatalf("event %d: expected kind %q, got %q", i, testCase.kinds[i], event.Kind())
				}
			}
		})
	}
}

func TestDecodeFieldValues(t *testing.T) {
	decoded, err := Decode([]byte(`{
		"serverContent":{
			"turnComplete":true,
			"inputTranscription":{"text":"my answer"},
			"modelTurn":{"parts":[{"text":"Good."},{"inlineData":{"data":"AAAA"}}]}
		},
		"toolCall":{"functionCalls":[{"id":"call-1","name":"conclude_viva","args":{"score":7}}]}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != 5 {
		t.Fatalf("expected 5 events, got %d", len(decoded))
	}

	user, ok := decoded[0].(events.Transcript)
	if !ok || user.Role != events.RoleUser || user.Text != "my answer" || !user.IsFinal {
		t.Fatalf("unexpected user transcript %+v", decoded[0])
	}
	assistant, ok := decoded[1].(events.Transcript)
	if !ok || assistant.Role != events.RoleAssistant || assistant.Text != "Good." || !assistant.IsFinal {
		t.Fatalf("unexpected assistant transcript %+v", decoded[1])
	}
	chunk, ok := decoded[2].(events.Audio)
	if !ok || chunk.Data != "AAAA" || chunk.MIMEType != events.DefaultAudioMIMEType {
		t.Fatalf("unexpected audio event %+v", decoded[2])
	}
	if _, ok := decoded[3].(events.TurnComplete); !ok {
		t.Fatalf("expected turn complete, got %T", decoded[3])
	}
	call, ok := decoded[4].(events.ToolCall)
	if !ok || call.ID != "call-1" || call.Name != "conclude_viva" || call.Args["score"] != float64(7) {
		t.Fatalf("unexpected tool call %+v", decoded[4])
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"serverContent":`))
	var protocolErr *ProtocolError
	if !errors.As(err, &protocolErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}
