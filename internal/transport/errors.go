package transport

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected   = errors.New("not connected")
	ErrClosed         = errors.New("transport closed")
	ErrSendBufferFull = errors.New("send buffer full")
	ErrInvalidAddress = errors.New("invalid router address")
)

// ConnError wraps an error with connection context.
type ConnError struct {
	Addr string
	Op   string
	Err  error
}

// Error returns the error message.
func (e *ConnError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("router %s: %s: %v", e.Addr, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnError) Unwrap() error {
	return e.Err
}

// NewConnError creates a new ConnError.
func NewConnError(addr, op string, err error) *ConnError {
	return &ConnError{Addr: addr, Op: op, Err: err}
}
