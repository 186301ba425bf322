// Package config reads the viva client configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/koscakluka/viva-core/core/backend"
	"github.com/koscakluka/viva-core/core/live"
)

const (
	TransportWebsocket = "websocket"
	TransportGenAI     = "genai"

	AudioBackendMiniaudio = "miniaudio"
	AudioBackendPortaudio = "portaudio"

	maxThinkingBudget = 8192
)

// Config holds everything needed to start and run one viva session.
type Config struct {
	BackendURL   string
	BackendToken string

	StudentName    string
	Topic          string
	ClassLevel     int
	VoiceName      string
	EnableThinking bool
	ThinkingBudget int

	Transport    string
	AudioBackend string

	TurnDebounce time.Duration
	FrameSize    time.Duration
}

// Load reads configuration from VIVA_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		BackendURL:     getEnv("VIVA_BACKEND_URL", backend.DefaultBaseURL),
		BackendToken:   getEnv("VIVA_BACKEND_TOKEN", ""),
		StudentName:    getEnv("VIVA_STUDENT_NAME", ""),
		Topic:          getEnv("VIVA_TOPIC", ""),
		ClassLevel:     getEnvInt("VIVA_CLASS_LEVEL", 10),
		VoiceName:      getEnv("VIVA_VOICE", live.DefaultVoice),
		EnableThinking: getEnvBool("VIVA_ENABLE_THINKING", true),
		ThinkingBudget: getEnvInt("VIVA_THINKING_BUDGET", 1024),
		Transport:      strings.ToLower(getEnv("VIVA_TRANSPORT", TransportWebsocket)),
		AudioBackend:   strings.ToLower(getEnv("VIVA_AUDIO_BACKEND", AudioBackendMiniaudio)),
		TurnDebounce:   getEnvDuration("VIVA_TURN_DEBOUNCE", 500*time.Millisecond),
		FrameSize:      getEnvDuration("VIVA_FRAME_SIZE", 100*time.Millisecond),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the fields that do not depend on the student. Student
// fields may still be filled in from flags, see ValidateStudent.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("VIVA_BACKEND_URL cannot be empty")
	}
	if !live.IsVoice(c.VoiceName) {
		return fmt.Errorf("VIVA_VOICE must be one of %s", strings.Join(live.Voices, ", "))
	}
	if c.ThinkingBudget < 0 || c.ThinkingBudget > maxThinkingBudget {
		return fmt.Errorf("VIVA_THINKING_BUDGET must be between 0 and %d", maxThinkingBudget)
	}
	switch c.Transport {
	case TransportWebsocket, TransportGenAI:
	default:
		return fmt.Errorf("VIVA_TRANSPORT must be %q or %q", TransportWebsocket, TransportGenAI)
	}
	switch c.AudioBackend {
	case AudioBackendMiniaudio, AudioBackendPortaudio:
	default:
		return fmt.Errorf("VIVA_AUDIO_BACKEND must be %q or %q", AudioBackendMiniaudio, AudioBackendPortaudio)
	}
	if c.TurnDebounce < 0 {
		return fmt.Errorf("VIVA_TURN_DEBOUNCE cannot be negative")
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("VIVA_FRAME_SIZE must be > 0")
	}
	return nil
}

// ValidateStudent checks the fields needed to start a session.
func (c *Config) ValidateStudent() error {
	if strings.TrimSpace(c.StudentName) == "" {
		return fmt.Errorf("student name cannot be empty")
	}
	if strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	if c.ClassLevel < 1 || c.ClassLevel > 12 {
		return fmt.Errorf("class level must be between 1 and 12")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
