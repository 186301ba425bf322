package live

import (
	"time"

	"github.com/koscakluka/viva-core/core/clock"
	"github.com/koscakluka/viva-core/core/events"
)

type Option func(*Client)

// Handlers receive everything the client observes. All of them are optional.
// OnEvent is called from a single goroutine in arrival order.
type Handlers struct {
	OnEvent        func(events.Event)
	OnConnected    func()
	OnDisconnected func(err error)
	OnReconnecting func(attempt int, delay time.Duration)
	// OnFatal is called when reconnecting after a lost channel gives up.
	// Failures of the initial Connect are returned to its caller instead.
	OnFatal func(err error)
}

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second}
}

// Delay returns the wait before the given retry, counting from zero:
// BaseDelay doubled per retry and capped at MaxDelay.
func (p RetryPolicy) Delay(retry int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < retry && (p.MaxDelay <= 0 || delay < p.MaxDelay); i++ {
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

func WithTransport(transport Transport) Option {
	return func(c *Client) {
		if transport != nil {
			c.transport = transport
		}
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		if clk != nil {
			c.clock = clk
		}
	}
}

func WithHandlers(handlers Handlers) Option {
	return func(c *Client) {
		c.handlers = handlers
	}
}
