package gateway

import (
	"context"
	"encoding/hex"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
)

// startGateway serves StateChannelInfo from a map of hex ids to replies.
func startGateway(t *testing.T, replies map[string]map[string]interface{}) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	handler := func(srv interface{}, stream grpc.ServerStream) error {
		method, _ := grpc.MethodFromServerStream(stream)
		if method != StateChannelInfoMethod {
			return status.Errorf(codes.Unimplemented, "unknown method %s", method)
		}
		req := &structpb.Struct{}
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		reply, ok := replies[req.GetFields()["id"].GetStringValue()]
		if !ok {
			return status.Error(codes.NotFound, "no such channel")
		}
		resp, err := structpb.NewStruct(reply)
		if err != nil {
			return err
		}
		return stream.SendMsg(resp)
	}

	srv := grpc.NewServer(grpc.UnknownServiceHandler(handler))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	c, err := New(Config{Address: "passthrough:///bufnet"},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestStateChannelInfo(t *testing.T) {
	owner := []byte{0x02, 0xaa, 0xbb}
	id := []byte("sc-1")
	c := startGateway(t, map[string]map[string]interface{}{
		hex.EncodeToString(id): {
			"height":          float64(120),
			"expire_at_block": float64(500),
			"owner":           hex.EncodeToString(owner),
		},
		hex.EncodeToString([]byte("bad")): {
			"expire_at_block": float64(500),
		},
	})
	ctx := context.Background()

	info, err := c.StateChannelInfo(ctx, id, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(120), info.Height)
	assert.Equal(t, uint64(500), info.ExpireAtBlock)
	assert.Equal(t, owner, info.Owner)

	_, err = c.StateChannelInfo(ctx, []byte("missing"), owner)
	assert.ErrorIs(t, err, statechannel.ErrUnknownOnChain)

	_, err = c.StateChannelInfo(ctx, []byte("bad"), owner)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestValidatorUsesGateway(t *testing.T) {
	c := startGateway(t, map[string]map[string]interface{}{})
	_, err := statechannel.NewValidator().FromWire(context.Background(), &statechannel.Wire{ID: []byte("x")}, c)
	assert.True(t, statechannel.IsValidationError(err))
}

func TestNewRequiresAddress(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
