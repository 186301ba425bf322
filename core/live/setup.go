package live

import "strings"

const (
	DefaultModel = "models/gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultVoice = "Kore"
)

// Voices lists the prebuilt voices a session may pick from.
var Voices = []string{"Kore", "Puck", "Charon", "Aoede", "Fenrir"}

func IsVoice(name string) bool {
	for _, voice := range Voices {
		if voice == name {
			return true
		}
	}
	return false
}

// SetupConfig is sent to the server as the first message of every channel,
// including channels opened by a reconnect.
type SetupConfig struct {
	Model             string
	VoiceName         string
	SystemInstruction string
	Tools             []FunctionDeclaration

	// Transcription asks the server to transcribe both sides of the
	// conversation.
	Transcription bool

	// ThinkingBudget caps the model's thinking tokens when set. Zero
	// disables thinking.
	ThinkingBudget *int
}

type FunctionDeclaration struct {
	Name        string
	Description string
	// Parameters is a JSON schema object describing the arguments.
	Parameters map[string]any
}

func (s SetupConfig) withDefaults() SetupConfig {
	if s.Model == "" {
		s.Model = DefaultModel
	}
	if !strings.HasPrefix(s.Model, "models/") {
		s.Model = "models/" + s.Model
	}
	if s.VoiceName == "" {
		s.VoiceName = DefaultVoice
	}
	return s
}

func (s SetupConfig) message() clientSetup {
	s = s.withDefaults()

	msg := setupMessage{
		Model: s.Model,
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: s.VoiceName}},
			},
		},
	}
	if s.ThinkingBudget != nil {
		msg.GenerationConfig.ThinkingConfig = &thinkingConfig{ThinkingBudget: *s.ThinkingBudget}
	}
	if s.SystemInstruction != "" {
		msg.SystemInstruction = &content{Parts: []part{{Text: s.SystemInstruction}}}
	}
	if len(s.Tools) > 0 {
		declarations := make([]functionDeclaration, 0, len(s.Tools))
		for _, tool := range s.Tools {
			declarations = append(declarations, functionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  openAPISchema(tool.Parameters),
			})
		}
		msg.Tools = []toolDeclaration{{FunctionDeclarations: declarations}}
	}
	if s.Transcription {
		msg.InputAudioTranscription = &struct{}{}
		msg.OutputAudioTranscription = &struct{}{}
	}

	return clientSetup{Setup: msg}
}
