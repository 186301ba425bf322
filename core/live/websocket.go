package live

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1alpha.GenerativeService"

	defaultDialTimeout = 15 * time.Second
	closeWriteTimeout  = 2 * time.Second
)

// WebsocketTransport speaks the live protocol directly over a websocket.
// API keys use the BidiGenerateContent method, ephemeral tokens the
// constrained variant.
type WebsocketTransport struct {
	// Endpoint is the service URL without the method suffix.
	Endpoint string
	Dialer   *websocket.Dialer
}

var _ Transport = (*WebsocketTransport)(nil)

func (t *WebsocketTransport) Dial(ctx context.Context, credential string, setup SetupConfig) (Conn, error) {
	endpoint := DefaultEndpoint
	if t != nil && t.Endpoint != "" {
		endpoint = t.Endpoint
	}
	dialer := websocket.DefaultDialer
	if t != nil && t.Dialer != nil {
		dialer = t.Dialer
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultDialTimeout)
		defer cancel()
	}

	conn, resp, err := dialer.DialContext(dialCtx, endpointURL(endpoint, credential), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	c := &websocketConn{conn: conn}
	if err := c.writeJSON(setup.message()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send setup: %w", err)
	}
	return c, nil
}

func endpointURL(endpoint, credential string) string {
	if IsEphemeralToken(credential) {
		return endpoint + ".BidiGenerateContentConstrained?access_token=" + url.QueryEscape(credential)
	}
	return endpoint + ".BidiGenerateContent?key=" + url.QueryEscape(credential)
}

type websocketConn struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *websocketConn) SendAudio(pcm []byte, mimeType string) error {
	return c.writeJSON(realtimeInputMessage{
		RealtimeInput: realtimeInput{Audio: &blob{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(pcm)}},
	})
}

func (c *websocketConn) SendText(text string) error {
	return c.writeJSON(clientContentMessage{
		ClientContent: clientContent{
			Turns:        []content{{Role: "user", Parts: []part{{Text: text}}}},
			TurnComplete: true,
		},
	})
}

func (c *websocketConn) SendToolResponse(response ToolResponse) error {
	return c.writeJSON(toolResponseMessage{
		ToolResponse: toolResponse{FunctionResponses: []functionResponse{{
			ID:       response.ID,
			Name:     response.Name,
			Response: response.Response,
		}}},
	})
}

// Receive returns io.EOF once the server closes the channel normally.
func (c *websocketConn) Receive() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, fmt.Errorf("%w: %v", io.EOF, err)
			}
			return nil, err
		}

		// The server sends JSON in both text and binary frames.
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *websocketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteTimeout),
		)
		c.writeMu.Unlock()
		if closeErr := c.conn.Close(); closeErr != nil && !errors.Is(closeErr, websocket.ErrCloseSent) {
			err = closeErr
		}
	})
	return err
}

func (c *websocketConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}
