package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goLoRaRouter/internal/protocol/message"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel/sctest"
)

const eventually = 2 * time.Second

func runClient(t *testing.T, f *fixture, uplinks <-chan Dispatch) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.client.Run(ctx, uplinks) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(eventually):
		t.Fatal("client did not stop")
		return nil
	}
}

func TestRunStopsOnShutdown(t *testing.T) {
	f := newFixture(t, PolicySendAndQueue)
	cancel, done := runClient(t, f, make(chan Dispatch))
	cancel()
	assert.NoError(t, waitDone(t, done))
}

func TestRunStopsWhenStreamCloses(t *testing.T) {
	f := newFixture(t, PolicySendAndQueue)
	_, done := runClient(t, f, make(chan Dispatch))
	close(f.transport.inbound)
	assert.NoError(t, waitDone(t, done))
}

func TestRunStopsOnStreamError(t *testing.T) {
	f := newFixture(t, PolicySendAndQueue)
	_, done := runClient(t, f, make(chan Dispatch))
	streamErr := errors.New("connection reset")
	f.transport.inbound <- message.Inbound{Err: streamErr}
	assert.ErrorIs(t, waitDone(t, done), streamErr)
}

func TestRunContinuesAfterHandlerErrors(t *testing.T) {
	f := newFixture(t, PolicySendAndQueue)
	uplinks := make(chan Dispatch)
	cancel, done := runClient(t, f, uplinks)

	f.transport.inbound <- message.Inbound{Message: message.New(&message.Offer{})}
	f.transport.inbound <- message.Inbound{Message: &message.Message{}}
	f.transport.inbound <- message.Inbound{Message: message.New(&message.Purchase{})}

	uplinks <- PacketDispatch{Packet: testPacket("a")}
	require.Eventually(t, func() bool { return len(f.transport.sentMessages()) == 1 }, eventually, 10*time.Millisecond)

	close(uplinks)
	f.transport.inbound <- message.Inbound{Message: message.New(&message.Reject{})}
	f.transport.inbound <- message.Inbound{Message: message.New(&message.Response{Accepted: true, Downlink: testPacket("d")})}

	select {
	case <-f.downlinks.Downlinks():
	case err := <-done:
		t.Fatalf("client stopped: %v", err)
	case <-time.After(eventually):
		t.Fatal("response not handled")
	}
	cancel()
	require.NoError(t, waitDone(t, done))
	assert.Zero(t, f.client.Queue().Len())
}

func TestRunSwapsGateway(t *testing.T) {
	f := newFixture(t, PolicyOfferOnly)
	uplinks := make(chan Dispatch)
	_, done := runClient(t, f, uplinks)

	// past the channel's expiry
	stale := sctest.NewGateway(sctest.DefaultExpireAtBlock + 1)
	uplinks <- GatewayDispatch{Gateway: stale}

	f.transport.inbound <- message.Inbound{Message: message.New(&message.Banner{SC: f.channel(t, "c1")})}
	require.Eventually(t, func() bool {
		conflicts, err := f.store.Conflicts(context.Background())
		return err == nil && len(conflicts) == 1
	}, eventually, 10*time.Millisecond)

	uplinks <- GatewayDispatch{Gateway: f.gateway}
	f.transport.inbound <- message.Inbound{Message: message.New(&message.Banner{SC: f.channel(t, "c1")})}
	require.Eventually(t, func() bool {
		n, _ := f.store.StateChannelCount(context.Background())
		return n == 1
	}, eventually, 10*time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("client stopped: %v", err)
	default:
	}
}

// Empty store, uplink A, banner C1, purchase of A on C1, response with a
// downlink.
func TestEndToEnd(t *testing.T) {
	f := newFixture(t, PolicySendAndQueue)
	ctx := context.Background()
	uplinks := make(chan Dispatch)
	cancel, done := runClient(t, f, uplinks)

	a := testPacket("packet-a")

	uplinks <- PacketDispatch{Packet: a}
	require.Eventually(t, func() bool { return len(f.transport.sentMessages()) == 1 }, eventually, 10*time.Millisecond)
	assert.Equal(t, 1, f.transport.connectCount())
	assert.Equal(t, a.Payload, packetPayload(t, f.transport.sentMessages()[0]))

	f.transport.inbound <- message.Inbound{Message: message.New(&message.Banner{SC: f.channel(t, "c1")})}
	require.Eventually(t, func() bool { return len(f.transport.sentMessages()) == 2 }, eventually, 10*time.Millisecond)
	assert.Equal(t, a.Hash(), offerHash(t, f.transport.sentMessages()[1]))
	trusted, err := f.store.StateChannel(ctx, []byte("c1"))
	require.NoError(t, err)
	require.NotNil(t, trusted)
	assert.Equal(t, statechannel.IDKey([]byte("c1")), trusted.IDKey())

	f.transport.inbound <- message.Inbound{Message: message.New(&message.Purchase{
		SC:         f.channel(t, "c1", sctest.WithNonce(1), sctest.WithSummary(f.self.PublicKey(), 1, a.DCs())),
		PacketHash: a.Hash(),
	})}
	require.Eventually(t, func() bool { return len(f.transport.sentMessages()) == 3 }, eventually, 10*time.Millisecond)
	assert.Equal(t, a.Payload, packetPayload(t, f.transport.sentMessages()[2]))

	down := testPacket("downlink")
	f.transport.inbound <- message.Inbound{Message: message.New(&message.Response{Accepted: true, Downlink: down})}

	select {
	case got := <-f.downlinks.Downlinks():
		assert.Equal(t, down.Payload, got.Payload)
	case <-time.After(eventually):
		t.Fatal("downlink not delivered")
	}

	cancel()
	require.NoError(t, waitDone(t, done))
	assert.Empty(t, f.downlinks.Downlinks(), "downlink delivered exactly once")
	assert.Zero(t, f.client.Queue().Len())
	assert.Equal(t, 1, f.transport.connectCount())

	sc, err := f.store.StateChannel(ctx, []byte("c1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sc.SC.Nonce)
}
