package transport

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goLoRaRouter/internal/protocol/message"
)

// fakeRouter accepts connections and hands them to the test.
type fakeRouter struct {
	ln      net.Listener
	conns   chan net.Conn
	accepts atomic.Int32
}

func newFakeRouter(t *testing.T) *fakeRouter {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	r := &fakeRouter{ln: ln, conns: make(chan net.Conn, 4)}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			r.accepts.Add(1)
			r.conns <- conn
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return r
}

func (r *fakeRouter) accept(t *testing.T) net.Conn {
	t.Helper()
	select {
	case conn := <-r.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection")
		return nil
	}
}

func next(t *testing.T, s *Service) (message.Inbound, bool) {
	t.Helper()
	select {
	case in, ok := <-s.Messages():
		return in, ok
	case <-time.After(2 * time.Second):
		t.Fatal("no inbound message")
		return message.Inbound{}, false
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	router := newFakeRouter(t)
	s := New(WithAddress(router.ln.Addr().String()), WithSendBufferSize(4))
	defer s.Close()
	ctx := context.Background()

	assert.Zero(t, s.Capacity())
	assert.ErrorIs(t, s.Send(ctx, message.New(&message.Reject{})), ErrNotConnected)

	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Connect(ctx))
	router.accept(t)

	assert.Equal(t, StateConnected, s.State())
	assert.Equal(t, int32(1), router.accepts.Load())
	assert.Equal(t, 4, s.Capacity())
}

func TestConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	s := New(WithAddress(addr), WithConnectTimeout(time.Second))
	err = s.Connect(context.Background())
	var cerr *ConnError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "connect", cerr.Op)
	assert.Equal(t, StateDisconnected, s.State())

	assert.ErrorIs(t, New().Connect(context.Background()), ErrInvalidAddress)
}

func TestSendAndReceive(t *testing.T) {
	router := newFakeRouter(t)
	s := New(WithAddress(router.ln.Addr().String()))
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Connect(ctx))
	conn := router.accept(t)

	hash := []byte("0123456789abcdef0123456789abcdef")
	require.NoError(t, s.Send(ctx, message.New(&message.Reject{PacketHash: hash})))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	got, _, err := message.ReadMessage(conn)
	require.NoError(t, err)
	require.Equal(t, message.TypeReject, got.Type())
	assert.Equal(t, hash, got.Payload.(*message.Reject).PacketHash)

	_, err = message.WriteMessage(conn, message.New(&message.Response{Accepted: true}), false)
	require.NoError(t, err)
	in, ok := next(t, s)
	require.True(t, ok)
	require.NoError(t, in.Err)
	assert.Equal(t, message.TypeResponse, in.Message.Type())

	assert.Equal(t, uint64(1), s.Traffic().Stats(message.TypeReject).MessagesOut)
	assert.Equal(t, uint64(1), s.Traffic().Stats(message.TypeResponse).MessagesIn)
	assert.Equal(t, uint64(2), s.Traffic().Total().MessagesIn+s.Traffic().Total().MessagesOut)
}

func TestRemoteCloseEndsStream(t *testing.T) {
	router := newFakeRouter(t)
	s := New(WithAddress(router.ln.Addr().String()))
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))
	router.accept(t).Close()

	_, ok := next(t, s)
	assert.False(t, ok, "clean remote close closes the stream")
	assert.Zero(t, s.Capacity())
}

func TestCorruptFrameFailsStream(t *testing.T) {
	router := newFakeRouter(t)
	s := New(WithAddress(router.ln.Addr().String()))
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))
	conn := router.accept(t)

	// header announcing 100 bytes, then hang up mid-frame
	buf := make([]byte, message.HeaderSizeUncompressed)
	require.NoError(t, message.EncodeHeader(buf, 100, message.TypeBanner, message.AlgorithmNone, 0))
	_, err := conn.Write(append(buf, 0x01, 0x02))
	require.NoError(t, err)
	conn.Close()

	in, ok := next(t, s)
	require.True(t, ok)
	var cerr *ConnError
	require.ErrorAs(t, in.Err, &cerr)
	assert.Equal(t, "read", cerr.Op)

	_, ok = next(t, s)
	assert.False(t, ok)
}

func TestCloseEndsStream(t *testing.T) {
	s := New(WithAddress("127.0.0.1:1"))
	require.NoError(t, s.Close())
	_, ok := next(t, s)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Connect(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.Send(context.Background(), message.New(&message.Reject{})), ErrClosed)
	assert.NoError(t, s.Close())

	router := newFakeRouter(t)
	connected := New(WithAddress(router.ln.Addr().String()))
	require.NoError(t, connected.Connect(context.Background()))
	router.accept(t)
	require.NoError(t, connected.Close())
	_, ok = next(t, connected)
	assert.False(t, ok)
}
