package backend

type StartRequest struct {
	StudentName    string `json:"student_name"`
	Topic          string `json:"topic"`
	ClassLevel     int    `json:"class_level"`
	SessionType    string `json:"session_type,omitempty"`
	VoiceName      string `json:"voice_name,omitempty"`
	EnableThinking *bool  `json:"enable_thinking,omitempty"`
	ThinkingBudget *int   `json:"thinking_budget,omitempty"`
}

type StartResponse struct {
	SessionID              string `json:"viva_session_id"`
	EphemeralToken         string `json:"ephemeral_token"`
	Model                  string `json:"google_model"`
	SessionDurationMinutes int    `json:"session_duration_minutes"`
	VoiceName              string `json:"voice_name"`
}

type ConcludeRequest struct {
	SessionID          string   `json:"viva_session_id"`
	Score              float64  `json:"score"`
	Summary            string   `json:"summary"`
	StrongPoints       []string `json:"strong_points"`
	AreasOfImprovement []string `json:"areas_of_improvement"`
}

type ConcludeResponse struct {
	Status   string  `json:"status"`
	Score    float64 `json:"score,omitempty"`
	Feedback string  `json:"feedback,omitempty"`
	Message  string  `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
