package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/LeJamon/goLoRaRouter/internal/keys"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
)

// AcceptFunc is the final business check before a channel becomes trusted.
// known is nil when no channel is trusted yet.
type AcceptFunc func(known, candidate *statechannel.StateChannel) error

// AcceptAll accepts every structurally valid channel.
func AcceptAll(known, candidate *statechannel.StateChannel) error {
	return nil
}

// Reconciler decides whether an incoming channel state replaces the trusted
// record in the store.
type Reconciler struct {
	store     Store
	validator statechannel.Validator
	self      keys.PublicKey

	// OnAppend is called after a channel is recorded as invalid.
	OnAppend func(sc *statechannel.StateChannel, reason error)
}

// NewReconciler creates a reconciler validating channels on behalf of self.
func NewReconciler(store Store, validator statechannel.Validator, self keys.PublicKey) *Reconciler {
	return &Reconciler{store: store, validator: validator, self: self}
}

// Reconcile folds wire into the store and returns the channel that is now
// trusted.
//
// An update to the trusted channel is merged and, if accept passes,
// overwrites it. Any other channel is built from the wire state and checked
// against the trusted channel, or on its own when none exists. A channel
// failing that check is appended to the audit log and the validation error
// returned. The store is never written when accept fails.
func (r *Reconciler) Reconcile(ctx context.Context, gw statechannel.Gateway, wire *statechannel.Wire, accept AcceptFunc) (*statechannel.StateChannel, error) {
	if wire == nil {
		return nil, statechannel.ErrNotFound
	}
	if accept == nil {
		accept = AcceptAll
	}

	known, err := r.store.StateChannel(ctx, wire.ID)
	if err != nil {
		return nil, fmt.Errorf("loading state channel: %w", err)
	}

	if known != nil && bytes.Equal(known.ID(), wire.ID) {
		merged, err := r.validator.Merge(known, wire)
		if err != nil {
			return nil, err
		}
		if err := accept(known, merged); err != nil {
			return nil, err
		}
		if err := r.store.OverwriteStateChannel(ctx, merged); err != nil {
			return nil, fmt.Errorf("storing state channel: %w", err)
		}
		return merged, nil
	}

	candidate, err := r.validator.FromWire(ctx, wire, gw)
	if err != nil {
		return nil, err
	}

	if known != nil {
		err = r.validator.ValidReplacement(known, candidate, r.self)
	} else {
		err = r.validator.ValidFor(candidate, r.self)
	}
	if err != nil {
		if !statechannel.IsValidationError(err) {
			return nil, err
		}
		if aerr := r.store.AppendStateChannel(ctx, candidate); aerr != nil {
			return nil, errors.Join(err, fmt.Errorf("recording invalid state channel: %w", aerr))
		}
		if r.OnAppend != nil {
			r.OnAppend(candidate, err)
		}
		return nil, err
	}

	if err := accept(known, candidate); err != nil {
		return nil, err
	}
	if err := r.store.OverwriteStateChannel(ctx, candidate); err != nil {
		return nil, fmt.Errorf("storing state channel: %w", err)
	}
	return candidate, nil
}
