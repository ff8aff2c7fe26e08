// Package gateway resolves on-chain state channel information from a
// gateway service over gRPC.
package gateway

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
)

// StateChannelInfoMethod is the full gRPC method name queried by the client.
const StateChannelInfoMethod = "/helium.gateway.Gateway/StateChannelInfo"

// DefaultTimeout bounds a single gateway call.
const DefaultTimeout = 5 * time.Second

// ErrMalformedResponse is returned when the gateway reply is missing fields.
var ErrMalformedResponse = errors.New("malformed gateway response")

// Config holds the gateway client settings.
type Config struct {
	// Address is the gateway's gRPC target.
	Address string
	Timeout time.Duration
}

// Client is a statechannel.Gateway backed by a gRPC connection.
type Client struct {
	conn    *grpc.ClientConn
	address string
	timeout time.Duration
}

var _ statechannel.Gateway = (*Client)(nil)

// New creates a client for cfg.Address. The connection is established
// lazily on the first call.
func New(cfg Config, opts ...grpc.DialOption) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("gateway address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gateway client for %s: %w", cfg.Address, err)
	}
	return &Client{conn: conn, address: cfg.Address, timeout: cfg.Timeout}, nil
}

// Address returns the gateway target.
func (c *Client) Address() string {
	return c.address
}

// StateChannelInfo implements statechannel.Gateway.
func (c *Client) StateChannelInfo(ctx context.Context, id, owner []byte) (*statechannel.OnChainInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := structpb.NewStruct(map[string]interface{}{
		"id":    hex.EncodeToString(id),
		"owner": hex.EncodeToString(owner),
	})
	if err != nil {
		return nil, err
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, StateChannelInfoMethod, req, resp); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", statechannel.ErrUnknownOnChain, status.Convert(err).Message())
		}
		return nil, fmt.Errorf("gateway %s: %w", c.address, err)
	}
	return parseInfo(resp)
}

func parseInfo(resp *structpb.Struct) (*statechannel.OnChainInfo, error) {
	fields := resp.GetFields()

	height, ok := fields["height"]
	if !ok {
		return nil, fmt.Errorf("%w: missing height", ErrMalformedResponse)
	}
	info := &statechannel.OnChainInfo{Height: uint64(height.GetNumberValue())}

	if v, ok := fields["expire_at_block"]; ok {
		info.ExpireAtBlock = uint64(v.GetNumberValue())
	}
	if v, ok := fields["owner"]; ok && v.GetStringValue() != "" {
		owner, err := hex.DecodeString(v.GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("%w: owner: %v", ErrMalformedResponse, err)
		}
		info.Owner = owner
	}
	return info, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
