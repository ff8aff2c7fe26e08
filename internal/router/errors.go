package router

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goLoRaRouter/internal/protocol/message"
)

var (
	// ErrProtocolViolation is returned for messages a router must never
	// send to a client.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrPurchaseMismatch is returned when a purchase does not reference
	// the packet it would pay for.
	ErrPurchaseMismatch = errors.New("purchase does not match queued packet")

	// ErrSinkFull is returned when the downlink consumer is not keeping up.
	ErrSinkFull = errors.New("downlink sink full")

	// ErrSinkClosed is returned after the downlink sink has been closed.
	ErrSinkClosed = errors.New("downlink sink closed")
)

// ProtocolError reports an unexpected inbound message type.
type ProtocolError struct {
	Type message.MessageType
}

// Error returns the error message.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%v: unexpected inbound %s message", ErrProtocolViolation, e.Type)
}

// Unwrap returns ErrProtocolViolation.
func (e *ProtocolError) Unwrap() error {
	return ErrProtocolViolation
}
