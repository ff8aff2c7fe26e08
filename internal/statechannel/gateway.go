package statechannel

import (
	"context"
)

// OnChainInfo is what a gateway reports about a channel on the ledger.
type OnChainInfo struct {
	// Height is the gateway's current chain height.
	Height uint64
	// ExpireAtBlock is the block at which the channel expires on-chain.
	ExpireAtBlock uint64
	// Owner is the on-chain owner of the channel.
	Owner []byte
}

// Gateway resolves on-chain information for state channels. The router
// client holds one gateway at a time and can swap it at runtime.
type Gateway interface {
	StateChannelInfo(ctx context.Context, id, owner []byte) (*OnChainInfo, error)
}
