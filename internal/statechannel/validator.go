package statechannel

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/LeJamon/goLoRaRouter/internal/keys"
	"github.com/LeJamon/goLoRaRouter/internal/packet"
)

// Validator decides which channel states a client may trust.
type Validator interface {
	// FromWire builds a channel record from a wire state, consulting the
	// gateway for on-chain information.
	FromWire(ctx context.Context, wire *Wire, gw Gateway) (*StateChannel, error)

	// ValidFor checks that sc is usable by the client identified by self.
	ValidFor(sc *StateChannel, self keys.PublicKey) error

	// ValidReplacement checks that candidate may replace known, a trusted
	// channel with a different id.
	ValidReplacement(known, candidate *StateChannel, self keys.PublicKey) error

	// ValidPurchase checks that candidate pays for pkt relative to known.
	// pkt may be nil when no packet was waiting.
	ValidPurchase(known, candidate *StateChannel, pkt *packet.Packet, self keys.PublicKey) error

	// Merge folds a newer wire state for the same channel into known.
	Merge(known *StateChannel, incoming *Wire) (*StateChannel, error)
}

// DefaultValidator implements the channel rules used by the router client.
type DefaultValidator struct{}

// NewValidator returns the default validator.
func NewValidator() *DefaultValidator {
	return &DefaultValidator{}
}

// FromWire implements Validator.
func (v *DefaultValidator) FromWire(ctx context.Context, wire *Wire, gw Gateway) (*StateChannel, error) {
	if wire == nil {
		return nil, ErrNotFound
	}
	if gw == nil {
		return nil, ErrNoGateway
	}

	info, err := gw.StateChannelInfo(ctx, wire.ID, wire.Owner)
	if err != nil {
		if errors.Is(err, ErrUnknownOnChain) {
			return nil, NewValidationError(wire.ID, err)
		}
		return nil, fmt.Errorf("resolving state channel %s: %w", IDKey(wire.ID), err)
	}
	if len(info.Owner) > 0 && !bytes.Equal(info.Owner, wire.Owner) {
		return nil, NewValidationError(wire.ID, ErrOwnerMismatch)
	}
	if info.ExpireAtBlock != 0 && info.ExpireAtBlock != wire.ExpireAtBlock {
		return nil, NewValidationError(wire.ID, fmt.Errorf("%w: wire %d, chain %d", ErrExpiryMismatch, wire.ExpireAtBlock, info.ExpireAtBlock))
	}

	return &StateChannel{
		SC:            *wire.Clone(),
		Height:        info.Height,
		OnChainExpiry: info.ExpireAtBlock,
	}, nil
}

// ValidFor implements Validator.
func (v *DefaultValidator) ValidFor(sc *StateChannel, self keys.PublicKey) error {
	if !sc.SC.VerifySignature() {
		return NewValidationError(sc.ID(), ErrInvalidSignature)
	}
	if sc.SC.State != StateOpen {
		return NewValidationError(sc.ID(), ErrClosed)
	}
	if expiry := sc.ExpireAtBlock(); sc.Height >= expiry {
		return NewValidationError(sc.ID(), fmt.Errorf("%w at block %d (height %d)", ErrExpired, expiry, sc.Height))
	}
	if total := sc.SC.TotalDCs(); total > sc.SC.Credits {
		return NewValidationError(sc.ID(), fmt.Errorf("%w: %d > %d", ErrOverspent, total, sc.SC.Credits))
	}
	if summary, ok := sc.SC.Summary(self); ok && summary.NumDCs < summary.NumPackets {
		return NewValidationError(sc.ID(), ErrInvalidSummary)
	}
	return nil
}

// ValidReplacement implements Validator.
func (v *DefaultValidator) ValidReplacement(known, candidate *StateChannel, self keys.PublicKey) error {
	if err := v.ValidFor(candidate, self); err != nil {
		return err
	}
	if !bytes.Equal(known.SC.Owner, candidate.SC.Owner) {
		return NewValidationError(candidate.ID(), ErrOwnerMismatch)
	}
	return nil
}

// ValidPurchase implements Validator.
func (v *DefaultValidator) ValidPurchase(known, candidate *StateChannel, pkt *packet.Packet, self keys.PublicKey) error {
	newSummary, _ := candidate.SC.Summary(self)

	if !bytes.Equal(known.ID(), candidate.ID()) {
		if pkt != nil && newSummary.NumDCs < pkt.DCs() {
			return fmt.Errorf("%w: %d dcs for %d required", ErrUnderpaid, newSummary.NumDCs, pkt.DCs())
		}
		return nil
	}

	if pkt == nil {
		return nil
	}
	if candidate.SC.Nonce <= known.SC.Nonce {
		return fmt.Errorf("%w: %d <= %d", ErrNonceNotAdvanced, candidate.SC.Nonce, known.SC.Nonce)
	}
	oldSummary, _ := known.SC.Summary(self)
	if newSummary.NumPackets < oldSummary.NumPackets+1 {
		return fmt.Errorf("%w: packet count %d -> %d", ErrUnderpaid, oldSummary.NumPackets, newSummary.NumPackets)
	}
	if newSummary.NumDCs < oldSummary.NumDCs+pkt.DCs() {
		return fmt.Errorf("%w: dcs %d -> %d, need +%d", ErrUnderpaid, oldSummary.NumDCs, newSummary.NumDCs, pkt.DCs())
	}
	return nil
}

// Merge implements Validator.
func (v *DefaultValidator) Merge(known *StateChannel, incoming *Wire) (*StateChannel, error) {
	if incoming == nil {
		return nil, ErrNotFound
	}
	if !bytes.Equal(known.ID(), incoming.ID) {
		return nil, NewValidationError(incoming.ID, ErrIDMismatch)
	}
	if !incoming.VerifySignature() {
		return nil, NewValidationError(incoming.ID, ErrInvalidSignature)
	}
	if incoming.Nonce < known.SC.Nonce {
		return nil, NewValidationError(incoming.ID, fmt.Errorf("%w: %d < %d", ErrStale, incoming.Nonce, known.SC.Nonce))
	}

	return &StateChannel{
		SC:            *incoming.Clone(),
		Height:        known.Height,
		Seq:           known.Seq + 1,
		OnChainExpiry: known.OnChainExpiry,
	}, nil
}
