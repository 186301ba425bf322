package live

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	incoming  chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	audio     [][]byte
	texts     []string
	responses []ToolResponse
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) SendAudio(pcm []byte, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio = append(c.audio, pcm)
	return nil
}

func (c *fakeConn) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return nil
}

func (c *fakeConn) SendToolResponse(response ToolResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, response)
	return nil
}

func (c *fakeConn) Receive() ([]byte, error) {
	select {
	case raw := <-c.incoming:
		return raw, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(raw string) { c.incoming <- []byte(raw) }

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) audioCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.audio)
}

var errDialRefused = errors.New("dial refused")

// fakeTransport hands out the queued connections in order. A nil entry, or
// running out of entries, fails the dial.
type fakeTransport struct {
	mu     sync.Mutex
	conns  []*fakeConn
	dials       int
	setups      []SetupConfig
	credentials []string
}

func (t *fakeTransport) Dial(_ context.Context, credential string, setup SetupConfig) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dials++
	t.setups = append(t.setups, setup)
	t.credentials = append(t.credentials, credential)
	if len(t.conns) == 0 {
		return nil, errDialRefused
	}
	conn := t.conns[0]
	t.conns = t.conns[1:]
	if conn == nil {
		return nil, errDialRefused
	}
	return conn, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
