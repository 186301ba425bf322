package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/viva-core/core/audio"
	"github.com/koscakluka/viva-core/core/clock"
	"github.com/koscakluka/viva-core/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var ErrNotConnected = errors.New("live channel is not connected")

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// Client owns the live channel of one session. It reconnects with
// exponential backoff when the channel drops and delivers decoded events
// strictly in arrival order. A client cannot be reused after Disconnect.
type Client struct {
	credential string
	setup      SetupConfig
	transport  Transport
	retry      RetryPolicy
	clock      clock.Clock
	handlers   Handlers

	mu         sync.Mutex
	baseCtx    context.Context
	conn       Conn
	generation uint64
	state      ConnectionState
	failures   int
	lastErr    error
	connecting bool
	closed     bool

	closing   chan struct{}
	closeOnce sync.Once
	backoff   *clock.DelayedAction

	queueMu  sync.Mutex
	queue    [][]byte
	draining atomic.Bool
}

func NewClient(credential string, setup SetupConfig, opts ...Option) *Client {
	c := &Client{
		credential: credential,
		setup:      setup,
		transport:  &WebsocketTransport{},
		retry:      DefaultRetryPolicy(),
		clock:      clock.New(),
		state:      StateDisconnected,
		closing:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.backoff = clock.NewDelayedAction(c.clock)
	return c
}

// SetCredential replaces the credential used by later dials. The open
// channel, if any, is left alone.
func (c *Client) SetCredential(credential string) error {
	if err := ValidateCredential(credential); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential = credential
	return nil
}

// Connect opens the channel, retrying failed attempts with backoff. ctx
// bounds the initial attempts and any later reconnects.
func (c *Client) Connect(ctx context.Context) error {
	baseCtx := ctx
	ctx, span := tracer.Start(ctx, "connect live channel")
	defer span.End()

	c.mu.Lock()
	credential := c.credential
	c.mu.Unlock()
	if err := ValidateCredential(credential); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	} else if c.conn != nil || c.connecting {
		c.mu.Unlock()
		return nil
	}
	c.baseCtx = baseCtx
	c.connecting = true
	c.mu.Unlock()

	if err := c.establish(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *Client) establish(ctx context.Context) (err error) {
	defer func() {
		c.mu.Lock()
		c.connecting = false
		var connErr *ConnectionError
		if err != nil && !errors.As(err, &connErr) && !c.closed {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClientClosed
		}
		failures, lastErr, credential := c.failures, c.lastErr, c.credential
		if failures > c.retry.MaxAttempts {
			c.state = StateError
			c.mu.Unlock()
			return &ConnectionError{Attempts: failures, Err: lastErr}
		}
		c.state = StateConnecting
		c.mu.Unlock()

		if failures > 0 {
			delay := c.retry.Delay(failures - 1)
			reconnectAttempts.Add(ctx, 1)
			logger.Info("retrying live connection", "attempt", failures, "delay", delay)
			if h := c.handlers.OnReconnecting; h != nil {
				h(failures, delay)
			}
			if err := c.wait(ctx, delay); err != nil {
				return err
			}
		}

		conn, err := c.transport.Dial(ctx, credential, c.setup)
		if err != nil {
			logger.Warn("failed to open live channel", "attempt", failures+1, "error", err)
			c.mu.Lock()
			c.failures++
			c.lastErr = err
			c.mu.Unlock()
			continue
		}

		if !c.adopt(conn) {
			_ = conn.Close()
			return ErrClientClosed
		}
		return nil
	}
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	elapsed := make(chan struct{})
	c.backoff.Schedule(d, func() { close(elapsed) })

	select {
	case <-elapsed:
		return nil
	case <-ctx.Done():
		c.backoff.Cancel()
		return ctx.Err()
	case <-c.closing:
		c.backoff.Cancel()
		return ErrClientClosed
	}
}

func (c *Client) adopt(conn Conn) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.generation++
	generation := c.generation
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	go c.readLoop(conn, generation)
	if h := c.handlers.OnConnected; h != nil {
		h()
	}
	return true
}

func (c *Client) readLoop(conn Conn, generation uint64) {
	for {
		raw, err := conn.Receive()
		if err != nil {
			c.connectionLost(conn, generation, err)
			return
		}
		c.enqueue(raw)
	}
}

// connectionLost starts reconnecting unless the loss was caused by
// Disconnect or belongs to a channel that was already replaced.
func (c *Client) connectionLost(conn Conn, generation uint64, cause error) {
	c.mu.Lock()
	if c.closed || generation != c.generation {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	c.failures++
	c.lastErr = cause
	c.connecting = true
	ctx := c.baseCtx
	c.mu.Unlock()

	_ = conn.Close()
	logger.Warn("live channel closed unexpectedly", "error", cause)
	if h := c.handlers.OnDisconnected; h != nil {
		h(cause)
	}

	go func() {
		ctx, span := tracer.Start(ctx, "reconnect live channel")
		defer span.End()

		err := c.establish(ctx)
		if err == nil || errors.Is(err, ErrClientClosed) || ctx.Err() != nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("giving up on live channel", "error", err)
		if h := c.handlers.OnFatal; h != nil {
			h(err)
		}
	}()
}

func (c *Client) enqueue(raw []byte) {
	c.queueMu.Lock()
	c.queue = append(c.queue, raw)
	c.queueMu.Unlock()

	if c.draining.CompareAndSwap(false, true) {
		go c.drain()
	}
}

// drain delivers queued messages one at a time. Only one drain runs at a
// time; the flag is rechecked after release so a message enqueued in
// between is never stranded.
func (c *Client) drain() {
	for {
		raw, ok := c.dequeue()
		if !ok {
			c.draining.Store(false)
			if c.queueLen() == 0 || !c.draining.CompareAndSwap(false, true) {
				return
			}
			continue
		}
		c.dispatch(raw)
	}
}

func (c *Client) dequeue() ([]byte, bool) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if len(c.queue) == 0 {
		return nil, false
	}
	raw := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return raw, true
}

func (c *Client) queueLen() int {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return len(c.queue)
}

func (c *Client) dispatch(raw []byte) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	decoded, err := Decode(raw)
	if err != nil {
		protocolErrors.Add(context.Background(), 1)
		logger.Warn("dropping server message", "error", err)
		return
	}

	for _, event := range decoded {
		if _, ok := event.(events.SetupComplete); ok {
			c.mu.Lock()
			c.failures = 0
			c.lastErr = nil
			c.mu.Unlock()
		}
		if h := c.handlers.OnEvent; h != nil {
			h(event)
		}
	}
}

// SendAudio forwards one 16 kHz frame. Frames are dropped without error
// while no channel is open.
func (c *Client) SendAudio(frame []byte) error {
	conn := c.currentConn()
	if conn == nil {
		framesDropped.Add(context.Background(), 1)
		return nil
	}

	if err := conn.SendAudio(frame, audio.GetDefaultEncodingInfo().MIMEType()); err != nil {
		return fmt.Errorf("failed to send audio frame: %w", err)
	}
	framesSent.Add(context.Background(), 1, withTransport(conn))
	return nil
}

func (c *Client) SendText(text string) error {
	conn := c.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.SendText(text); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	return nil
}

func (c *Client) SendToolResponse(response ToolResponse) error {
	conn := c.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.SendToolResponse(response); err != nil {
		return fmt.Errorf("failed to send tool response: %w", err)
	}
	return nil
}

// Disconnect closes the channel and stops any reconnect in progress. No
// events are delivered afterwards. It is safe to call more than once.
func (c *Client) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.conn = nil
		c.generation++
		c.state = StateDisconnected
		c.mu.Unlock()

		close(c.closing)
		c.backoff.Cancel()

		c.queueMu.Lock()
		c.queue = nil
		c.queueMu.Unlock()

		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) currentConn() Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func withTransport(conn Conn) metric.AddOption {
	return metric.WithAttributes(attribute.String("live.transport", fmt.Sprintf("%T", conn)))
}
