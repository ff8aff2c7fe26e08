package router

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goLoRaRouter/internal/keys"
	"github.com/LeJamon/goLoRaRouter/internal/packet"
	"github.com/LeJamon/goLoRaRouter/internal/protocol/message"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel/sctest"
	"github.com/LeJamon/goLoRaRouter/internal/storage/database"
)

var errSendFailed = errors.New("send failed")

// fakeTransport is a Transport whose capacity shrinks with every send.
type fakeTransport struct {
	mu         sync.Mutex
	connects   int
	sent       []*message.Message
	capacity   int
	sendErr    error
	connectErr error
	inbound    chan message.Inbound
}

func newFakeTransport(capacity int) *fakeTransport {
	return &fakeTransport{capacity: capacity, inbound: make(chan message.Inbound, 16)}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeTransport) Send(ctx context.Context, msg *message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	if f.capacity > 0 {
		f.capacity--
	}
	return nil
}

func (f *fakeTransport) Messages() <-chan message.Inbound {
	return f.inbound
}

func (f *fakeTransport) Capacity() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capacity
}

func (f *fakeTransport) setCapacity(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capacity = n
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeTransport) sentMessages() []*message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*message.Message(nil), f.sent...)
}

func (f *fakeTransport) sentOfType(t message.MessageType) []*message.Message {
	var out []*message.Message
	for _, m := range f.sentMessages() {
		if m.Type() == t {
			out = append(out, m)
		}
	}
	return out
}

// fixture is a client wired to a memory-backed store and a fake transport.
type fixture struct {
	client    *Client
	transport *fakeTransport
	store     *RouterStore
	gateway   *sctest.Gateway
	downlinks *DownlinkQueue
	self      *keys.Keypair
	owner     *keys.Keypair
	now       time.Time
}

func newFixture(t *testing.T, policy UplinkPolicy) *fixture {
	t.Helper()
	f := &fixture{
		transport: newFakeTransport(10),
		gateway:   sctest.NewGateway(10),
		downlinks: NewDownlinkQueue(4),
		self:      sctest.NewKeypair(t),
		owner:     sctest.NewKeypair(t),
		now:       time.Unix(1700000000, 0),
	}

	store, err := NewRouterStore(context.Background(), database.NewMemoryDB(), f.owner.PublicKey(), 0)
	require.NoError(t, err)
	f.store = store

	f.client, err = NewClient(Config{
		OUI:     1,
		Region:  packet.RegionUS915,
		Keypair: f.self,
		URI:     "router.test:8080",
		Policy:  policy,
		Clock:   func() time.Time { return f.now },
		Logger:  zerolog.Nop(),
	}, f.transport, store, nil, f.gateway, f.downlinks)
	require.NoError(t, err)
	return f
}

// channel builds a channel owned by the fixture's router.
func (f *fixture) channel(t *testing.T, id string, opts ...sctest.Option) *statechannel.Wire {
	return sctest.Channel(t, f.owner, id, opts...)
}

func (f *fixture) trust(t *testing.T, id string, opts ...sctest.Option) *statechannel.StateChannel {
	t.Helper()
	out, err := f.client.HandleMessage(context.Background(), message.New(&message.Banner{SC: f.channel(t, id, opts...)}))
	require.NoError(t, err)
	return out.StateChannel
}

func (f *fixture) enqueue(pkts ...*packet.Packet) {
	for _, p := range pkts {
		f.client.queue.Push(&QueuedPacket{Packet: p, Received: f.now})
	}
}

func testPacket(payload string) *packet.Packet {
	return &packet.Packet{OUI: 1, Payload: []byte(payload), Datarate: "SF7BW125", Frequency: 904.1}
}

func offerHash(t *testing.T, m *message.Message) []byte {
	t.Helper()
	offer, ok := m.Payload.(*message.Offer)
	require.True(t, ok, "expected offer, got %s", m.Type())
	return offer.PacketHash
}

func packetPayload(t *testing.T, m *message.Message) []byte {
	t.Helper()
	pkt, ok := m.Payload.(*message.Packet)
	require.True(t, ok, "expected packet, got %s", m.Type())
	return pkt.Packet.Payload
}

func samePacket(a, b *packet.Packet) bool {
	return bytes.Equal(a.Payload, b.Payload)
}
