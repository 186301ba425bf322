package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GenAITransport opens live channels through the Google GenAI SDK.
type GenAITransport struct {
	APIVersion string
	HTTPClient *http.Client
}

var _ Transport = (*GenAITransport)(nil)

func (t *GenAITransport) Dial(ctx context.Context, credential string, setup SetupConfig) (Conn, error) {
	config := &genai.ClientConfig{
		APIKey:      credential,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1alpha"},
	}
	if t != nil && t.APIVersion != "" {
		config.HTTPOptions.APIVersion = t.APIVersion
	}
	if t != nil && t.HTTPClient != nil {
		config.HTTPClient = t.HTTPClient
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	setup = setup.withDefaults()
	session, err := client.Live.Connect(ctx, setup.Model, liveConnectConfig(setup))
	if err != nil {
		return nil, fmt.Errorf("failed to open genai live session: %w", err)
	}
	return &genaiConn{session: session}, nil
}

func liveConnectConfig(setup SetupConfig) *genai.LiveConnectConfig {
	config := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: setup.VoiceName},
			},
		},
	}
	if setup.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(setup.SystemInstruction, genai.RoleUser)
	}
	if len(setup.Tools) > 0 {
		declarations := make([]*genai.FunctionDeclaration, 0, len(setup.Tools))
		for _, tool := range setup.Tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  genaiSchema(tool.Parameters),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}
	if setup.ThinkingBudget != nil {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(int32(*setup.ThinkingBudget))}
	}
	if setup.Transcription {
		config.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
		config.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	return config
}

type genaiConn struct {
	session *genai.Session
}

func (c *genaiConn) SendAudio(pcm []byte, mimeType string) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: mimeType},
	})
}

func (c *genaiConn) SendText(text string) error {
	return c.session.SendClientContent(genai.LiveClientContentInput{
		Turns: []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
	})
}

func (c *genaiConn) SendToolResponse(response ToolResponse) error {
	return c.session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: []*genai.FunctionResponse{{
			ID:       response.ID,
			Name:     response.Name,
			Response: response.Response,
		}},
	})
}

// Receive re-encodes the SDK's typed message so every transport feeds the
// same decoder.
func (c *genaiConn) Receive() ([]byte, error) {
	msg, err := c.session.Receive()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode server message: %w", err)
	}
	return raw, nil
}

func (c *genaiConn) Close() error {
	return c.session.Close()
}
