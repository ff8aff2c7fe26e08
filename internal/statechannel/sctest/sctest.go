// Package sctest provides builders for signed state channels and an
// in-memory gateway for tests.
package sctest

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goLoRaRouter/internal/keys"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
)

// DefaultExpireAtBlock is the expiry used by Channel unless overridden.
const DefaultExpireAtBlock = 1000

// Option adjusts a wire state before it is signed.
type Option func(*statechannel.Wire)

// WithNonce sets the channel nonce.
func WithNonce(n uint64) Option {
	return func(w *statechannel.Wire) { w.Nonce = n }
}

// WithCredits sets the channel credits.
func WithCredits(c uint64) Option {
	return func(w *statechannel.Wire) { w.Credits = c }
}

// WithSummary adds or replaces the summary for client.
func WithSummary(client keys.PublicKey, packets, dcs uint64) Option {
	return func(w *statechannel.Wire) {
		for i := range w.Summaries {
			if client.Equal(w.Summaries[i].ClientPubkey) {
				w.Summaries[i].NumPackets = packets
				w.Summaries[i].NumDCs = dcs
				return
			}
		}
		w.Summaries = append(w.Summaries, statechannel.Summary{
			ClientPubkey: client,
			NumPackets:   packets,
			NumDCs:       dcs,
		})
	}
}

// WithState sets the channel state.
func WithState(s statechannel.State) Option {
	return func(w *statechannel.Wire) { w.State = s }
}

// WithExpireAtBlock sets the expiry block.
func WithExpireAtBlock(b uint64) Option {
	return func(w *statechannel.Wire) { w.ExpireAtBlock = b }
}

// Unsigned skips signing; applied after the signature it clears it.
func Unsigned() Option {
	return func(w *statechannel.Wire) { w.Signature = []byte{0x00} }
}

// NewKeypair generates a keypair or fails the test.
func NewKeypair(t testing.TB) *keys.Keypair {
	t.Helper()
	kp, err := keys.Generate()
	require.NoError(t, err)
	return kp
}

// Channel builds a wire channel owned by owner and signs it. Options named
// Unsigned run after signing so they can corrupt the signature.
func Channel(t testing.TB, owner *keys.Keypair, id string, opts ...Option) *statechannel.Wire {
	t.Helper()
	w := &statechannel.Wire{
		ID:            []byte(id),
		Owner:         owner.PublicKey(),
		Credits:       100,
		ExpireAtBlock: DefaultExpireAtBlock,
		State:         statechannel.StateOpen,
	}
	var post []Option
	for _, opt := range opts {
		probe := &statechannel.Wire{}
		opt(probe)
		if len(probe.Signature) > 0 {
			post = append(post, opt)
			continue
		}
		opt(w)
	}
	require.NoError(t, w.Sign(owner))
	for _, opt := range post {
		opt(w)
	}
	return w
}

// Gateway is an in-memory statechannel.Gateway.
type Gateway struct {
	mu            sync.Mutex
	Height        uint64
	// ExpireAtBlock is reported as the on-chain expiry when non-zero.
	ExpireAtBlock uint64
	Err           error
	Known         map[string]bool
	Calls         int
}

// NewGateway returns a gateway at the given height that knows every
// channel unless Known is populated.
func NewGateway(height uint64) *Gateway {
	return &Gateway{Height: height}
}

// StateChannelInfo implements statechannel.Gateway.
func (g *Gateway) StateChannelInfo(ctx context.Context, id, owner []byte) (*statechannel.OnChainInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	if g.Err != nil {
		return nil, g.Err
	}
	if g.Known != nil && !g.Known[hex.EncodeToString(id)] {
		return nil, statechannel.ErrUnknownOnChain
	}
	return &statechannel.OnChainInfo{Height: g.Height, ExpireAtBlock: g.ExpireAtBlock, Owner: owner}, nil
}
