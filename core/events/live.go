package events

const (
	KindSetupComplete Kind = "setup_complete"
	KindTranscript    Kind = "transcript"
	KindAudio         Kind = "audio"
	KindTurnComplete  Kind = "turn_complete"
	KindInterrupted   Kind = "interrupted"
	KindToolCall      Kind = "tool_call"
)

// DefaultAudioMIMEType labels audio parts that arrive without one.
const DefaultAudioMIMEType = "audio/pcm;rate=24000"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type SetupComplete struct{ Base }

func NewSetupComplete() SetupComplete {
	return SetupComplete{Base: newBase(KindSetupComplete)}
}

// Transcript is a text fragment. IsFinal is set when the fragment arrived in
// the same message that completed the turn.
type Transcript struct {
	Base
	Role    Role
	Text    string
	IsFinal bool
}

func NewTranscript(role Role, text string, isFinal bool) Transcript {
	return Transcript{Base: newBase(KindTranscript), Role: role, Text: text, IsFinal: isFinal}
}

// Audio carries base64 encoded PCM exactly as received.
type Audio struct {
	Base
	Data     string
	MIMEType string
}

func NewAudio(data, mimeType string) Audio {
	if mimeType == "" {
		mimeType = DefaultAudioMIMEType
	}
	return Audio{Base: newBase(KindAudio), Data: data, MIMEType: mimeType}
}

type TurnComplete struct{ Base }

func NewTurnComplete() TurnComplete {
	return TurnComplete{Base: newBase(KindTurnComplete)}
}

type Interrupted struct{ Base }

func NewInterrupted() Interrupted {
	return Interrupted{Base: newBase(KindInterrupted)}
}

// ToolCall is a function call requested by the assistant. Args is never nil.
type ToolCall struct {
	Base
	ID   string
	Name string
	Args map[string]any
}

func NewToolCall(id, name string, args map[string]any) ToolCall {
	if args == nil {
		args = map[string]any{}
	}
	return ToolCall{Base: newBase(KindToolCall), ID: id, Name: name, Args: args}
}
