package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestEndpointURL(t *testing.T) {
	testCases := []struct {
		name       string
		credential string
		want       string
	}{
		{name: "api key", credential: "AIzaKey", want: "wss://host/ws/svc.BidiGenerateContent?key=AIzaKey"},
		{name: "ephemeral token", credential: "auth_tokens/abc", want: "wss://host/ws/svc.BidiGenerateContentConstrained?access_token=auth_tokens%2Fabc"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := endpointURL("wss://host/ws/svc", testCase.credential); got != testCase.want {
				t.Fatalf("expected %q, got %q", testCase.want, got)
			}
		})
	}
}

func TestSetupMessageShape(t *testing.T) {
	budget := 0
	raw, err := json.Marshal(SetupConfig{
		Model:             "gemini-2.5-flash-native-audio-preview-09-2025",
		SystemInstruction: "You are an examiner.",
		Transcription:     true,
		ThinkingBudget:    &budget,
		Tools: []FunctionDeclaration{{
			Name:       "conclude_viva",
			Parameters: map[string]any{"type": "object"},
		}},
	}.message())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Setup struct {
			Model            string `json:"model"`
			GenerationConfig struct {
				ResponseModalities []string `json:"responseModalities"`
				SpeechConfig       struct {
					VoiceConfig struct {
						PrebuiltVoiceConfig struct {
							VoiceName string `json:"voiceName"`
						} `json:"prebuiltVoiceConfig"`
					} `json:"voiceConfig"`
				} `json:"speechConfig"`
				ThinkingConfig *struct {
					ThinkingBudget int `json:"thinkingBudget"`
				} `json:"thinkingConfig"`
			} `json:"generationConfig"`
			Tools []struct {
				FunctionDeclarations []struct {
					Name       string         `json:"name"`
					Parameters map[string]any `json:"parameters"`
				} `json:"functionDeclarations"`
			} `json:"tools"`
			OutputAudioTranscription *struct{} `json:"outputAudioTranscription"`
		} `json:"setup"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	setup := decoded.Setup
	if setup.Model != "models/gemini-2.5-flash-native-audio-preview-09-2025" {
		t.Fatalf("expected model to be prefixed, got %q", setup.Model)
	}
	if len(setup.GenerationConfig.ResponseModalities) != 1 || setup.GenerationConfig.ResponseModalities[0] != "AUDIO" {
		t.Fatalf("unexpected modalities %v", setup.GenerationConfig.ResponseModalities)
	}
	if setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != DefaultVoice {
		t.Fatalf("expected default voice")
	}
	if setup.GenerationConfig.ThinkingConfig == nil || setup.GenerationConfig.ThinkingConfig.ThinkingBudget != 0 {
		t.Fatalf("expected explicit zero thinking budget")
	}
	if len(setup.Tools) != 1 || setup.Tools[0].FunctionDeclarations[0].Parameters["type"] != "OBJECT" {
		t.Fatalf("unexpected tools %+v", setup.Tools)
	}
	if setup.OutputAudioTranscription == nil {
		t.Fatalf("expected output transcription to be requested")
	}
}

func TestWebsocketTransportRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan map[string]json.RawMessage, 4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ".BidiGenerateContent") || r.URL.Query().Get("key") != testAPIKey {
			http.Error(w, "bad route", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for range 2 {
			var msg map[string]json.RawMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete":{}}`))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte(`{"serverContent":{"turnComplete":true}}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer server.Close()

	transport := &WebsocketTransport{Endpoint: "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/live"}
	conn, err := transport.Dial(context.Background(), testAPIKey, SetupConfig{})
	if err != nil {
		t.Fatalf("unexpected dial error: %v", err)
	}
	defer conn.Close()

	if err := conn.SendAudio([]byte{1, 2, 3, 4}, "audio/pcm;rate=16000"); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	if _, ok := (<-received)["setup"]; !ok {
		t.Fatalf("expected setup to be the first message")
	}
	var input realtimeInputMessage
	raw, _ := json.Marshal(<-received)
	if err := json.Unmarshal(raw, &input); err != nil || input.RealtimeInput.Audio == nil {
		t.Fatalf("expected realtime audio input, got %s", raw)
	}
	if input.RealtimeInput.Audio.Data != base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected audio payload %q", input.RealtimeInput.Audio.Data)
	}
	if input.RealtimeInput.Audio.MIMEType != "audio/pcm;rate=16000" {
		t.Fatalf("unexpected MIME type %q", input.RealtimeInput.Audio.MIMEType)
	}

	for _, want := range []string{"setupComplete", "serverContent"} {
		msg, err := conn.Receive()
		if err != nil {
			t.Fatalf("unexpected receive error: %v", err)
		}
		if !strings.Contains(string(msg), want) {
			t.Fatalf("expected %s message, got %s", want, msg)
		}
	}
	if _, err := conn.Receive(); err == nil {
		t.Fatalf("expected an error once the server closed the channel")
	}
}
