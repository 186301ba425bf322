package live

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredential = errors.New("invalid credential format: expected an API key or an ephemeral token")
	ErrClientClosed      = errors.New("live client is closed")
)

// ConnectionError is returned once every connection attempt has failed.
type ConnectionError struct {
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to live API after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports a server message that is not valid JSON. It is
// logged and the message dropped; it never ends the session.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed server message: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
