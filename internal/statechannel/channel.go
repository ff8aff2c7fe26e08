// Package statechannel models the off-chain payment channels used to pay for
// packet forwarding, and the rules for trusting a channel update received
// from a router.
package statechannel

import (
	"encoding/hex"
	"fmt"

	"github.com/LeJamon/goLoRaRouter/internal/codec/cbor"
	"github.com/LeJamon/goLoRaRouter/internal/keys"
)

// State is the lifecycle state of a channel on the ledger.
type State int32

const (
	StateOpen State = iota
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Summary is the per-client usage recorded in a channel.
type Summary struct {
	ClientPubkey []byte `codec:"client_pubkey,omitempty"`
	NumPackets   uint64 `codec:"num_packets"`
	NumDCs       uint64 `codec:"num_dcs"`
}

// Wire is the channel state exactly as exchanged with the router.
type Wire struct {
	ID            []byte    `codec:"id,omitempty"`
	Owner         []byte    `codec:"owner,omitempty"`
	Credits       uint64    `codec:"credits"`
	Nonce         uint64    `codec:"nonce"`
	Summaries     []Summary `codec:"summaries,omitempty"`
	RootHash      []byte    `codec:"root_hash,omitempty"`
	Skewed        bool      `codec:"skewed"`
	State         State     `codec:"state"`
	ExpireAtBlock uint64    `codec:"expire_at_block"`
	Signature     []byte    `codec:"signature,omitempty"`
}

// SigningBytes returns the canonical encoding the owner signs: the channel
// with its signature cleared.
func (w *Wire) SigningBytes() ([]byte, error) {
	unsigned := *w
	unsigned.Signature = nil
	return cbor.Marshal(&unsigned)
}

// Sign sets the channel signature using the owner keypair.
func (w *Wire) Sign(owner *keys.Keypair) error {
	data, err := w.SigningBytes()
	if err != nil {
		return err
	}
	sig, err := owner.Sign(data)
	if err != nil {
		return err
	}
	w.Signature = sig
	return nil
}

// VerifySignature checks the signature against the channel owner.
func (w *Wire) VerifySignature() bool {
	data, err := w.SigningBytes()
	if err != nil {
		return false
	}
	return keys.PublicKey(w.Owner).Verify(data, w.Signature)
}

// Summary returns the summary for a client key.
func (w *Wire) Summary(client keys.PublicKey) (Summary, bool) {
	for _, s := range w.Summaries {
		if client.Equal(s.ClientPubkey) {
			return s, true
		}
	}
	return Summary{}, false
}

// TotalDCs sums the DCs used across all summaries.
func (w *Wire) TotalDCs() uint64 {
	var total uint64
	for _, s := range w.Summaries {
		total += s.NumDCs
	}
	return total
}

// Clone returns a deep copy of the wire state.
func (w *Wire) Clone() *Wire {
	if w == nil {
		return nil
	}
	out := *w
	out.ID = append([]byte(nil), w.ID...)
	out.Owner = append([]byte(nil), w.Owner...)
	out.RootHash = append([]byte(nil), w.RootHash...)
	out.Signature = append([]byte(nil), w.Signature...)
	if w.Summaries != nil {
		out.Summaries = make([]Summary, len(w.Summaries))
		for i, s := range w.Summaries {
			s.ClientPubkey = append([]byte(nil), s.ClientPubkey...)
			out.Summaries[i] = s
		}
	}
	return &out
}

// IDKey returns the hex encoding of a channel id.
func IDKey(id []byte) string {
	return hex.EncodeToString(id)
}

// StateChannel is a channel record this client has constructed from a wire
// state. Seq advances every time a newer state for the same channel is
// merged in.
type StateChannel struct {
	SC            Wire   `codec:"sc"`
	Height        uint64 `codec:"height"`
	Seq           uint64 `codec:"seq"`
	// OnChainExpiry is the expiry block reported by the gateway. Zero when
	// the gateway did not report one.
	OnChainExpiry uint64 `codec:"onchain_expiry,omitempty"`
}

// ID returns the channel id.
func (s *StateChannel) ID() []byte {
	return s.SC.ID
}

// IDKey returns the hex channel id, used in logs and store keys.
func (s *StateChannel) IDKey() string {
	return IDKey(s.SC.ID)
}

// ExpireAtBlock returns the on-chain expiry when known, otherwise the one
// carried by the wire state.
func (s *StateChannel) ExpireAtBlock() uint64 {
	if s.OnChainExpiry != 0 {
		return s.OnChainExpiry
	}
	return s.SC.ExpireAtBlock
}

// String implements fmt.Stringer.
func (s *StateChannel) String() string {
	return fmt.Sprintf("sc %s nonce=%d seq=%d", s.IDKey(), s.SC.Nonce, s.Seq)
}

// Encode returns the CBOR encoding used by the store.
func (s *StateChannel) Encode() ([]byte, error) {
	return cbor.Marshal(s)
}

// Decode parses a record produced by Encode.
func Decode(data []byte) (*StateChannel, error) {
	var sc StateChannel
	if err := cbor.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decoding state channel: %w", err)
	}
	return &sc, nil
}
