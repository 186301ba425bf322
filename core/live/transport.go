package live

import "context"

// Transport opens a live channel and sends the setup message on it.
type Transport interface {
	Dial(ctx context.Context, credential string, setup SetupConfig) (Conn, error)
}

// Conn is one open live channel. Send methods may be called concurrently
// with Receive; Receive is only called from one goroutine.
type Conn interface {
	SendAudio(pcm []byte, mimeType string) error
	SendText(text string) error
	SendToolResponse(response ToolResponse) error
	// Receive blocks for the next raw server message in its JSON form.
	Receive() ([]byte, error)
	Close() error
}

type ToolResponse struct {
	ID       string
	Name     string
	Response map[string]any
}
