// Package router implements the state channel client that pays a LoRaWAN
// router for forwarding packets: the event loop, the channel reconciliation
// rules and the offer/purchase queue.
package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/LeJamon/goLoRaRouter/internal/keys"
	"github.com/LeJamon/goLoRaRouter/internal/packet"
	"github.com/LeJamon/goLoRaRouter/internal/protocol/message"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
)

//go:generate mockgen -destination=routermock/mocks.go -package=routermock github.com/LeJamon/goLoRaRouter/internal/router Transport,Store

// Transport is the state channel duplex to the router.
type Transport interface {
	// Connect starts a session. Calling it while connecting or connected
	// is a no-op.
	Connect(ctx context.Context) error

	// Send queues a message for the router.
	Send(ctx context.Context, msg *message.Message) error

	// Messages is the inbound stream. It is closed when the stream ends
	// cleanly; an item with Err set reports a failed stream.
	Messages() <-chan message.Inbound

	// Capacity is the number of messages Send can currently take.
	Capacity() int
}

// UplinkPolicy selects what happens to an uplink after it is queued.
type UplinkPolicy int

const (
	// PolicySendAndQueue sends each uplink straight away as a packet
	// message and keeps it queued for the offer/purchase cycle.
	PolicySendAndQueue UplinkPolicy = iota

	// PolicyOfferOnly only releases packets the router has purchased.
	// Uplinks are offered as soon as they are queued, after connecting
	// when no channel is trusted yet, and again on every banner.
	PolicyOfferOnly
)

// String returns the configuration name of the policy.
func (p UplinkPolicy) String() string {
	switch p {
	case PolicySendAndQueue:
		return "send_and_queue"
	case PolicyOfferOnly:
		return "offer_only"
	default:
		return "unknown"
	}
}

// ParseUplinkPolicy parses a policy name.
func ParseUplinkPolicy(s string) (UplinkPolicy, error) {
	switch strings.ToLower(s) {
	case "", "send_and_queue":
		return PolicySendAndQueue, nil
	case "offer_only":
		return PolicyOfferOnly, nil
	default:
		return 0, fmt.Errorf("unknown uplink policy %q", s)
	}
}

// Config holds the client settings.
type Config struct {
	OUI      uint32
	Region   packet.Region
	Keypair  *keys.Keypair
	URI      string
	Policy   UplinkPolicy
	MaxQueue int

	// Clock defaults to time.Now.
	Clock   func() time.Time
	Logger  zerolog.Logger
	Metrics *Metrics
}

// Outcome describes what handling one inbound message did.
type Outcome struct {
	Type message.MessageType
	// StateChannel is the channel trusted after a banner or purchase.
	StateChannel *statechannel.StateChannel
	// Packet is the packet removed from the queue by a purchase or reject.
	Packet *QueuedPacket
	// Offers is the number of offers sent.
	Offers int
	// Sent reports that a packet message went out.
	Sent bool
	// Delivered reports that a downlink reached the sink.
	Delivered bool
}

// Client is the state channel client for one router. All of its state is
// owned by the goroutine running Run.
type Client struct {
	cfg        Config
	transport  Transport
	store      Store
	validator  statechannel.Validator
	reconciler *Reconciler
	gateway    statechannel.Gateway
	downlinks  DownlinkSink
	queue      *Queue
	metrics    *Metrics
	log        zerolog.Logger
	now        func() time.Time
}

// NewClient creates a client. gw may be nil until a GatewayDispatch
// provides one; a nil validator selects the default rules.
func NewClient(cfg Config, transport Transport, store Store, validator statechannel.Validator, gw statechannel.Gateway, downlinks DownlinkSink) (*Client, error) {
	if cfg.Keypair == nil {
		return nil, errors.New("router client requires a keypair")
	}
	if transport == nil || store == nil || downlinks == nil {
		return nil, errors.New("router client requires a transport, store and downlink sink")
	}
	if validator == nil {
		validator = statechannel.NewValidator()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	c := &Client{
		cfg:        cfg,
		transport:  transport,
		store:      store,
		validator:  validator,
		reconciler: NewReconciler(store, validator, cfg.Keypair.PublicKey()),
		gateway:    gw,
		downlinks:  downlinks,
		queue:      NewQueue(cfg.MaxQueue),
		metrics:    metrics,
		now:        now,
		log: cfg.Logger.With().
			Str("module", "router").
			Str("public_key", cfg.Keypair.PublicKey().String()).
			Str("uri", cfg.URI).
			Uint32("oui", cfg.OUI).
			Logger(),
	}
	c.reconciler.OnAppend = func(sc *statechannel.StateChannel, reason error) {
		c.metrics.ChannelsAppended.Inc()
		c.log.Warn().Str("sc_id", sc.IDKey()).Err(reason).Msg("recorded invalid state channel")
	}
	return c, nil
}

// Queue exposes the packet queue for inspection.
func (c *Client) Queue() *Queue {
	return c.queue
}

// Run processes uplinks and inbound messages until ctx is cancelled or the
// inbound stream ends. Handler errors are logged and do not stop the loop.
func (c *Client) Run(ctx context.Context, uplinks <-chan Dispatch) error {
	c.log.Info().Str("policy", c.cfg.Policy.String()).Msg("starting")
	inbound := c.transport.Messages()

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("shutting down")
			return nil

		case d, ok := <-uplinks:
			if !ok {
				c.log.Info().Msg("uplink channel closed")
				uplinks = nil
				continue
			}
			c.handleDispatch(ctx, d)

		case in, ok := <-inbound:
			if !ok {
				c.log.Info().Msg("state channel stream closed")
				return nil
			}
			if in.Err != nil {
				return fmt.Errorf("state channel stream: %w", in.Err)
			}
			if in.Message.Type() == message.TypeNone {
				continue
			}
			if _, err := c.HandleMessage(ctx, in.Message); err != nil {
				c.metrics.HandlerErrors.WithLabelValues(errorKind(err)).Inc()
				c.log.Warn().Err(err).Str("type", in.Message.Type().String()).Msg("state channel handling error")
			}
		}
	}
}

func (c *Client) handleDispatch(ctx context.Context, d Dispatch) {
	switch d := d.(type) {
	case PacketDispatch:
		if err := c.handleUplink(ctx, d.Packet); err != nil {
			c.metrics.HandlerErrors.WithLabelValues(errorKind(err)).Inc()
			c.log.Warn().Err(err).Msg("ignoring failed uplink")
		}
	case GatewayDispatch:
		c.log.Info().Msg("using new gateway")
		c.gateway = d.Gateway
	default:
		c.log.Warn().Msgf("ignoring unknown dispatch %T", d)
	}
}

func (c *Client) handleUplink(ctx context.Context, p *packet.Packet) error {
	if p == nil {
		return errors.New("nil uplink packet")
	}

	count, err := c.store.StateChannelCount(ctx)
	if err != nil {
		return fmt.Errorf("counting state channels: %w", err)
	}
	c.metrics.TrustedChannels.Set(float64(count))
	if count == 0 {
		if err := c.transport.Connect(ctx); err != nil {
			return fmt.Errorf("connecting to router: %w", err)
		}
	}

	qp := &QueuedPacket{Packet: p, Received: c.now()}
	if dropped := c.queue.Push(qp); dropped != nil {
		c.metrics.PacketsDropped.Inc()
		c.log.Warn().Hex("packet_hash", dropped.Packet.Hash()).Msg("queue full, dropped oldest packet")
	}
	c.metrics.PacketsQueued.Inc()
	c.metrics.QueueLength.Set(float64(c.queue.Len()))

	switch c.cfg.Policy {
	case PolicyOfferOnly:
		_, err := c.sendOffers(ctx)
		return err
	default:
		return c.sendPacket(ctx, qp)
	}
}

// HandleMessage applies one inbound message.
func (c *Client) HandleMessage(ctx context.Context, msg *message.Message) (Outcome, error) {
	if msg == nil {
		return Outcome{Type: message.TypeNone}, nil
	}
	switch m := msg.Payload.(type) {
	case *message.Response:
		return c.handleResponse(m), nil
	case *message.Banner:
		return c.handleBanner(ctx, m)
	case *message.Purchase:
		return c.handlePurchase(ctx, m)
	case *message.Reject:
		return c.handleReject(m), nil
	case *message.Offer, *message.Packet:
		return Outcome{Type: msg.Type()}, &ProtocolError{Type: msg.Type()}
	case nil:
		return Outcome{Type: message.TypeNone}, nil
	default:
		return Outcome{Type: msg.Type()}, &ProtocolError{Type: msg.Type()}
	}
}

func (c *Client) handleResponse(r *message.Response) Outcome {
	out := Outcome{Type: message.TypeResponse}
	down, ok := r.DownlinkPacket()
	if !ok {
		return out
	}
	if err := c.downlinks.Deliver(down); err != nil {
		c.metrics.DownlinksDropped.Inc()
		c.log.Warn().Err(err).Msg("failed to push downlink")
		return out
	}
	c.metrics.DownlinksDelivered.Inc()
	out.Delivered = true
	return out
}

func (c *Client) handleBanner(ctx context.Context, b *message.Banner) (Outcome, error) {
	out := Outcome{Type: message.TypeBanner}

	sc, err := c.reconciler.Reconcile(ctx, c.gateway, b.SC, AcceptAll)
	if err != nil {
		return out, fmt.Errorf("banner: %w", err)
	}
	out.StateChannel = sc
	c.metrics.Banners.Inc()
	c.log.Info().Str("sc_id", sc.IDKey()).Uint64("nonce", sc.SC.Nonce).Msg("received banner")

	out.Offers, err = c.sendOffers(ctx)
	return out, err
}

func (c *Client) handlePurchase(ctx context.Context, p *message.Purchase) (Outcome, error) {
	out := Outcome{Type: message.TypePurchase}

	qp := c.queue.Dequeue()
	out.Packet = qp
	c.metrics.QueueLength.Set(float64(c.queue.Len()))

	var pkt *packet.Packet
	if qp != nil {
		pkt = qp.Packet
	}

	sc, err := c.reconciler.Reconcile(ctx, c.gateway, p.SC, c.acceptPurchase(p, pkt))
	if err != nil {
		return out, fmt.Errorf("purchase: %w", err)
	}
	out.StateChannel = sc
	c.metrics.Purchases.Inc()
	c.log.Info().Str("sc_id", sc.IDKey()).Uint64("nonce", sc.SC.Nonce).Msg("received purchase")

	if err := c.sendPacket(ctx, qp); err != nil {
		return out, err
	}
	out.Sent = qp != nil
	return out, nil
}

func (c *Client) acceptPurchase(p *message.Purchase, pkt *packet.Packet) AcceptFunc {
	self := c.cfg.Keypair.PublicKey()
	return func(known, candidate *statechannel.StateChannel) error {
		if pkt != nil && !bytes.Equal(p.PacketHash, pkt.Hash()) {
			return fmt.Errorf("%w: hash %x", ErrPurchaseMismatch, p.PacketHash)
		}
		if known == nil {
			return nil
		}
		return c.validator.ValidPurchase(known, candidate, pkt, self)
	}
}

func (c *Client) handleReject(r *message.Reject) Outcome {
	qp := c.queue.Dequeue()
	c.metrics.QueueLength.Set(float64(c.queue.Len()))
	if qp != nil {
		c.metrics.Rejects.Inc()
		c.log.Debug().Hex("packet_hash", qp.Packet.Hash()).Msg("offer rejected")
	}
	return Outcome{Type: message.TypeReject, Packet: qp}
}

// sendOffers offers pending packets oldest first while the transport has
// capacity.
func (c *Client) sendOffers(ctx context.Context) (int, error) {
	sent := 0
	for c.transport.Capacity() > 0 {
		qp := c.queue.PeekPending()
		if qp == nil {
			break
		}
		offer, err := message.NewOffer(qp.Packet, c.cfg.Keypair, c.cfg.Region)
		if err != nil {
			return sent, err
		}
		if err := c.transport.Send(ctx, message.New(offer)); err != nil {
			return sent, fmt.Errorf("sending offer: %w", err)
		}
		c.queue.MarkOffered()
		c.metrics.OffersSent.Inc()
		sent++
	}
	return sent, nil
}

func (c *Client) sendPacket(ctx context.Context, qp *QueuedPacket) error {
	if qp == nil {
		return nil
	}
	msg, err := message.NewPacket(qp.Packet, c.cfg.Keypair, c.cfg.Region, qp.HoldTime(c.now()))
	if err != nil {
		return err
	}
	if err := c.transport.Send(ctx, message.New(msg)); err != nil {
		return fmt.Errorf("sending packet: %w", err)
	}
	c.metrics.PacketsSent.Inc()
	return nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrProtocolViolation):
		return "protocol"
	case errors.Is(err, statechannel.ErrNotFound):
		return "not_found"
	case statechannel.IsValidationError(err):
		return "validation"
	case errors.Is(err, ErrPurchaseMismatch),
		errors.Is(err, statechannel.ErrUnderpaid),
		errors.Is(err, statechannel.ErrNonceNotAdvanced):
		return "rejected"
	default:
		return "io"
	}
}
