package statechannel

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a message carries no state channel.
	ErrNotFound = errors.New("state channel not found")

	// ErrNoGateway is returned when a channel must be resolved but no
	// gateway is available.
	ErrNoGateway = errors.New("no gateway available")

	// Validation reasons
	ErrInvalidSignature = errors.New("invalid owner signature")
	ErrClosed           = errors.New("state channel closed")
	ErrExpired          = errors.New("state channel expired")
	ErrOverspent        = errors.New("summaries exceed channel credits")
	ErrInvalidSummary   = errors.New("summary records more packets than dcs")
	ErrOwnerMismatch    = errors.New("owner does not match known channel")
	ErrIDMismatch       = errors.New("state channel id mismatch")
	ErrStale            = errors.New("stale state channel nonce")
	ErrUnknownOnChain   = errors.New("state channel unknown to gateway")
	ErrExpiryMismatch   = errors.New("expiry does not match on-chain state")

	// Purchase reasons
	ErrNonceNotAdvanced = errors.New("purchase nonce did not advance")
	ErrUnderpaid        = errors.New("purchase does not pay for packet")
)

// ValidationError reports that a state channel failed a validity check.
// These are the failures that get recorded in the store's audit log.
type ValidationError struct {
	ID     []byte
	Reason error
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("state channel %s: %v", hex.EncodeToString(e.ID), e.Reason)
}

// Unwrap returns the underlying reason.
func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// NewValidationError creates a ValidationError for channel id.
func NewValidationError(id []byte, reason error) *ValidationError {
	return &ValidationError{ID: id, Reason: reason}
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
