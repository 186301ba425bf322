package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/viva-core/internal/utils"
)

func TestStartSession(t *testing.T) {
	var received StartRequest
	tokenCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/viva/start" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"viva_session_id": "session-1",
			"ephemeral_token": "auth_tokens/abc",
			"google_model": "models/gemini-2.5-flash-native-audio-preview-09-2025",
			"session_duration_minutes": 10,
			"voice_name": "Puck"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", WithTokenProvider(func(context.Context) (string, error) {
		tokenCalls++
		return "token-1", nil
	}))

	resp, err := client.StartSession(context.Background(), StartRequest{
		StudentName:    "Ada",
		Topic:          "Vectors",
		ClassLevel:     11,
		VoiceName:      "Puck",
		EnableThinking: utils.Ptr(true),
		ThinkingBudget: utils.Ptr(1024),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.SessionID != "session-1" || resp.EphemeralToken != "auth_tokens/abc" || resp.SessionDurationMinutes != 10 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if received.StudentName != "Ada" || received.ClassLevel != 11 || received.ThinkingBudget == nil || *received.ThinkingBudget != 1024 {
		t.Fatalf("unexpected request body %+v", received)
	}
	if tokenCalls != 1 {
		t.Fatalf("expected the token provider to be called once, got %d", tokenCalls)
	}
}

func TestConcludeSessionSurfacesAPIError(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{name: "string detail", status: http.StatusNotFound, body: `{"detail":"Session not found"}`, wantDetail: "Session not found"},
		{name: "validation detail", status: http.StatusUnprocessableEntity, body: `{"detail":[{"loc":["score"]}]}`, wantDetail: `[{"loc":["score"]}]`},
		{name: "no body", status: http.StatusBadGateway, body: ``, wantDetail: "Bad Gateway"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(testCase.status)
				_, _ = w.Write([]byte(testCase.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).ConcludeSession(context.Background(), ConcludeRequest{SessionID: "session-1"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != testCase.status || apiErr.Detail != testCase.wantDetail {
				t.Fatalf("unexpected error %+v", apiErr)
			}
		})
	}
}

func TestConcludeSessionSendsResult(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/viva/conclude-viva" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no authorization header without a token provider")
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		_, _ = w.Write([]byte(`{"status":"completed","score":8,"feedback":"Good grasp"}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).ConcludeSession(context.Background(), ConcludeRequest{
		SessionID:          "session-1",
		Score:              8,
		Summary:            "Good grasp",
		StrongPoints:       []string{"definitions"},
		AreasOfImprovement: []string{"examples"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "completed" || resp.Score != 8 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if received["viva_session_id"] != "session-1" || received["summary"] != "Good grasp" {
		t.Fatalf("unexpected request body %v", received)
	}
	if points, ok := received["strong_points"].([]any); !ok || len(points) != 1 {
		t.Fatalf("expected strong points list, got %v", received["strong_points"])
	}
}

func TestTokenProviderErrorStopsRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer server.Close()

	tokenErr := errors.New("signed out")
	client := NewClient(server.URL, WithTokenProvider(func(context.Context) (string, error) { return "", tokenErr }))
	if _, err := client.Health(context.Background()); !errors.Is(err, tokenErr) {
		t.Fatalf("expected token error, got %v", err)
	}
	if called {
		t.Fatalf("expected no request to be sent")
	}
}
