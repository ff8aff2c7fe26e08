package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goLoRaRouter/internal/packet"
	"github.com/LeJamon/goLoRaRouter/internal/protocol/message"
	"github.com/LeJamon/goLoRaRouter/internal/router/routermock"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel/sctest"
)

func TestParseUplinkPolicy(t *testing.T) {
	p, err := ParseUplinkPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySendAndQueue, p)

	p, err = ParseUplinkPolicy("OFFER_ONLY")
	require.NoError(t, err)
	assert.Equal(t, PolicyOfferOnly, p)
	assert.Equal(t, "offer_only", p.String())

	_, err = ParseUplinkPolicy("broadcast")
	assert.Error(t, err)
}

func TestNewClientRequiresCollaborators(t *testing.T) {
	_, err := NewClient(Config{}, newFakeTransport(1), nil, nil, nil, NewDownlinkQueue(1))
	assert.Error(t, err)

	_, err = NewClient(Config{Keypair: sctest.NewKeypair(t)}, nil, nil, nil, nil, NewDownlinkQueue(1))
	assert.Error(t, err)
}

func TestOfferFloodRespectsCapacity(t *testing.T) {
	f := newFixture(t, PolicyOfferOnly)
	pkts := []*packet.Packet{testPacket("p1"), testPacket("p2"), testPacket("p3"), testPacket("p4"), testPacket("p5")}
	f.enqueue(pkts...)
	f.transport.setCapacity(2)

	f.trust(t, "c1")

	offers := f.transport.sentOfType(message.TypeOffer)
	require.Len(t, offers, 2)
	assert.Equal(t, pkts[0].Hash(), offerHash(t, offers[0]))
	assert.Equal(t, pkts[1].Hash(), offerHash(t, offers[1]))
	assert.Equal(t, 5, f.client.Queue().Len(), "offered packets stay queued")
	assert.Equal(t, 3, f.client.Queue().Pending())

	// the next banner resumes with the first un-offered packet
	f.transport.setCapacity(10)
	out, err := f.client.HandleMessage(context.Background(), message.New(&message.Banner{SC: f.channel(t, "c1", sctest.WithNonce(1))}))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Offers)
	offers = f.transport.sentOfType(message.TypeOffer)
	require.Len(t, offers, 5)
	assert.Equal(t, pkts[2].Hash(), offerHash(t, offers[2]))
}

func TestOfferSendFailureLeavesPacketPending(t *testing.T) {
	f := newFixture(t, PolicyOfferOnly)
	f.enqueue(testPacket("p1"))
	f.transport.sendErr = errSendFailed

	_, err := f.client.HandleMessage(context.Background(), message.New(&message.Banner{SC: f.channel(t, "c1")}))
	assert.ErrorIs(t, err, errSendFailed)
	assert.Equal(t, 1, f.client.Queue().Pending())
}

func TestRejectRemovesOldest(t *testing.T) {
	f := newFixture(t, PolicyOfferOnly)
	ctx := context.Background()
	p1, p2, p3 := testPacket("p1"), testPacket("p2"), testPacket("p3")
	f.enqueue(p1, p2, p3)

	out, err := f.client.HandleMessage(ctx, message.New(&message.Reject{}))
	require.NoError(t, err)
	require.NotNil(t, out.Packet)
	assert.Same(t, p1, out.Packet.Packet)

	q := f.client.Queue()
	require.Equal(t, 2, q.Len())
	assert.Same(t, p2, q.Dequeue().Packet)
	assert.Same(t, p3, q.Dequeue().Packet)

	out, err = f.client.HandleMessage(ctx, message.New(&message.Reject{}))
	require.NoError(t, err)
	assert.Nil(t, out.Packet)
	assert.Empty(t, f.transport.sentMessages())
}

func TestPurchaseDequeuesFIFO(t *testing.T) {
	f := newFixture(t, PolicyOfferOnly)
	ctx := context.Background()
	self := f.self.PublicKey()
	p1, p2 := testPacket("first"), testPacket("second")
	f.enqueue(p1, p2)
	f.trust(t, "c1")

	purchase1 := &message.Purchase{
		SC:         f.channel(t, "c1", sctest.WithNonce(1), sctest.WithSummary(self, 1, p1.DCs())),
		PacketHash: p1.Hash(),
	}
	out, err := f.client.HandleMessage(ctx, message.New(purchase1))
	require.NoError(t, err)
	assert.Same(t, p1, out.Packet.Packet)
	assert.True(t, out.Sent)
	assert.Equal(t, uint64(1), out.StateChannel.SC.Nonce)

	purchase2 := &message.Purchase{
		SC:         f.channel(t, "c1", sctest.WithNonce(2), sctest.WithSummary(self, 2, p1.DCs()+p2.DCs())),
		PacketHash: p2.Hash(),
	}
	out, err = f.client.HandleMessage(ctx, message.New(purchase2))
	require.NoError(t, err)
	assert.Same(t, p2, out.Packet.Packet)

	sent := f.transport.sentOfType(message.TypePacket)
	require.Len(t, sent, 2)
	assert.Equal(t, p1.Payload, packetPayload(t, sent[0]))
	assert.Equal(t, p2.Payload, packetPayload(t, sent[1]))
	assert.Zero(t, f.client.Queue().Len())

	sc, err := f.store.StateChannel(ctx, []byte("c1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), sc.SC.Nonce)
	assert.Equal(t, uint64(2), sc.Seq)
}

func TestPurchaseRejectedLeavesStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		build  func(t *testing.T, f *fixture, p *packet.Packet) *message.Purchase
		reason error
	}{
		{
			name: "wrong packet",
			build: func(t *testing.T, f *fixture, p *packet.Packet) *message.Purchase {
				return &message.Purchase{
					SC:         f.channel(t, "c1", sctest.WithNonce(1), sctest.WithSummary(f.self.PublicKey(), 1, p.DCs())),
					PacketHash: testPacket("other").Hash(),
				}
			},
			reason: ErrPurchaseMismatch,
		},
		{
			name: "underpaid",
			build: func(t *testing.T, f *fixture, p *packet.Packet) *message.Purchase {
				return &message.Purchase{
					SC:         f.channel(t, "c1", sctest.WithNonce(1)),
					PacketHash: p.Hash(),
				}
			},
			reason: statechannel.ErrUnderpaid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, PolicyOfferOnly)
			p := testPacket("payload")
			f.enqueue(p)
			trusted := f.trust(t, "c1")

			out, err := f.client.HandleMessage(ctx, message.New(tt.build(t, f, p)))
			assert.ErrorIs(t, err, tt.reason)
			assert.False(t, out.Sent)
			assert.Empty(t, f.transport.sentOfType(message.TypePacket))

			sc, err := f.store.StateChannel(ctx, []byte("c1"))
			require.NoError(t, err)
			assert.Equal(t, trusted.SC.Nonce, sc.SC.Nonce)
			assert.Equal(t, trusted.Seq, sc.Seq)
		})
	}
}

func TestPurchaseWithEmptyQueue(t *testing.T) {
	f := newFixture(t, PolicyOfferOnly)
	f.trust(t, "c1")

	out, err := f.client.HandleMessage(context.Background(), message.New(&message.Purchase{SC: f.channel(t, "c1", sctest.WithNonce(1))}))
	require.NoError(t, err)
	assert.Nil(t, out.Packet)
	assert.False(t, out.Sent)
	assert.Empty(t, f.transport.sentMessages())
}

func TestPurchaseWithoutChannel(t *testing.T) {
	f := newFixture(t, PolicyOfferOnly)
	_, err := f.client.HandleMessage(context.Background(), message.New(&message.Purchase{}))
	assert.ErrorIs(t, err, statechannel.ErrNotFound)
}

func TestProtocolViolations(t *testing.T) {
	f := newFixture(t, PolicyOfferOnly)
	ctx := context.Background()

	for _, payload := range []message.Payload{&message.Offer{}, &message.Packet{}} {
		_, err := f.client.HandleMessage(ctx, message.New(payload))
		assert.ErrorIs(t, err, ErrProtocolViolation)
		var perr *ProtocolError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, payload.Type(), perr.Type)
	}

	out, err := f.client.HandleMessage(ctx, &message.Message{})
	require.NoError(t, err)
	assert.Equal(t, message.TypeNone, out.Type)
}

func TestResponseDelivery(t *testing.T) {
	f := newFixture(t, PolicyOfferOnly)
	ctx := context.Background()
	down := testPacket("downlink")

	out, err := f.client.HandleMessage(ctx, message.New(&message.Response{Accepted: true, Downlink: down}))
	require.NoError(t, err)
	assert.True(t, out.Delivered)
	assert.Same(t, down, <-f.downlinks.Downlinks())

	out, err = f.client.HandleMessage(ctx, message.New(&message.Response{Accepted: false, Downlink: down}))
	require.NoError(t, err)
	assert.False(t, out.Delivered)

	// a full or closed sink is not an error
	for i := 0; i < 4; i++ {
		require.NoError(t, f.downlinks.Deliver(down))
	}
	out, err = f.client.HandleMessage(ctx, message.New(&message.Response{Accepted: true, Downlink: down}))
	require.NoError(t, err)
	assert.False(t, out.Delivered)

	f.downlinks.Close()
	out, err = f.client.HandleMessage(ctx, message.New(&message.Response{Accepted: true, Downlink: down}))
	require.NoError(t, err)
	assert.False(t, out.Delivered)
}

func TestConnectOnFirstPacket(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := routermock.NewMockTransport(ctrl)
	store := routermock.NewMockStore(ctrl)

	c, err := NewClient(Config{
		Keypair: sctest.NewKeypair(t),
		Region:  packet.RegionEU868,
		Logger:  zerolog.Nop(),
	}, transport, store, nil, nil, NewDownlinkQueue(1))
	require.NoError(t, err)

	store.EXPECT().StateChannelCount(gomock.Any()).Return(0, nil)
	gomock.InOrder(
		transport.EXPECT().Connect(gomock.Any()).Return(nil).Times(1),
		transport.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, m *message.Message) error {
				assert.Equal(t, message.TypePacket, m.Type())
				return nil
			}).Times(1),
	)

	require.NoError(t, c.handleUplink(context.Background(), testPacket("a")))
	assert.Equal(t, 1, c.Queue().Len())
}

func TestNoConnectWithTrustedChannel(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := routermock.NewMockTransport(ctrl)
	store := routermock.NewMockStore(ctrl)

	c, err := NewClient(Config{Keypair: sctest.NewKeypair(t), Logger: zerolog.Nop(), Policy: PolicyOfferOnly},
		transport, store, nil, nil, NewDownlinkQueue(1))
	require.NoError(t, err)

	store.EXPECT().StateChannelCount(gomock.Any()).Return(1, nil)
	transport.EXPECT().Capacity().Return(1)
	transport.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
	transport.EXPECT().Capacity().Return(0)

	require.NoError(t, c.handleUplink(context.Background(), testPacket("a")))
	assert.Equal(t, 1, c.Queue().Offered())
}

func TestOfferOnlyFloodsAfterConnect(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := routermock.NewMockTransport(ctrl)
	store := routermock.NewMockStore(ctrl)

	c, err := NewClient(Config{Keypair: sctest.NewKeypair(t), Logger: zerolog.Nop(), Policy: PolicyOfferOnly},
		transport, store, nil, nil, NewDownlinkQueue(1))
	require.NoError(t, err)

	a := testPacket("a")
	store.EXPECT().StateChannelCount(gomock.Any()).Return(0, nil)
	gomock.InOrder(
		transport.EXPECT().Connect(gomock.Any()).Return(nil),
		transport.EXPECT().Capacity().Return(1),
		transport.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, m *message.Message) error {
				assert.Equal(t, a.Hash(), offerHash(t, m))
				return nil
			}),
		transport.EXPECT().Capacity().Return(0),
	)

	require.NoError(t, c.handleUplink(context.Background(), a))
	assert.Equal(t, 1, c.Queue().Len())
	assert.Equal(t, 1, c.Queue().Offered())
}

func TestOfferOnlyCapacityExhaustedWaitsForBanner(t *testing.T) {
	f := newFixture(t, PolicyOfferOnly)
	f.transport.setCapacity(0)

	require.NoError(t, f.client.handleUplink(context.Background(), testPacket("a")))
	assert.Equal(t, 1, f.transport.connectCount())
	assert.Empty(t, f.transport.sentMessages())
	assert.Equal(t, 1, f.client.Queue().Pending())

	f.transport.setCapacity(5)
	f.trust(t, "c1")
	assert.Len(t, f.transport.sentOfType(message.TypeOffer), 1)
}

func TestUplinkConnectFailure(t *testing.T) {
	f := newFixture(t, PolicySendAndQueue)
	f.transport.connectErr = errors.New("refused")

	err := f.client.handleUplink(context.Background(), testPacket("a"))
	assert.ErrorIs(t, err, f.transport.connectErr)
	assert.Zero(t, f.client.Queue().Len())
}

func TestPacketHoldTime(t *testing.T) {
	f := newFixture(t, PolicyOfferOnly)
	p := testPacket("held")
	f.enqueue(p)
	f.trust(t, "c1")
	f.now = f.now.Add(750 * time.Millisecond)

	_, err := f.client.HandleMessage(context.Background(), message.New(&message.Purchase{
		SC:         f.channel(t, "c1", sctest.WithNonce(1), sctest.WithSummary(f.self.PublicKey(), 1, p.DCs())),
		PacketHash: p.Hash(),
	}))
	require.NoError(t, err)

	sent := f.transport.sentOfType(message.TypePacket)
	require.Len(t, sent, 1)
	msg := sent[0].Payload.(*message.Packet)
	assert.Equal(t, uint64(750), msg.HoldTime)
	assert.Equal(t, packet.RegionUS915, msg.Region)
	assert.True(t, msg.VerifySignature())
}
