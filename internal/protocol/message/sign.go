package message

import (
	"errors"
	"fmt"
	"time"

	"github.com/LeJamon/goLoRaRouter/internal/codec/cbor"
	"github.com/LeJamon/goLoRaRouter/internal/keys"
	"github.com/LeJamon/goLoRaRouter/internal/packet"
)

// ErrNilPacket is returned when signing a message without a packet.
var ErrNilPacket = errors.New("nil packet")

// NewOffer builds an offer for p signed by the hotspot keypair.
func NewOffer(p *packet.Packet, kp *keys.Keypair, region packet.Region) (*Offer, error) {
	if p == nil {
		return nil, ErrNilPacket
	}
	offer := &Offer{
		PacketHash:  p.Hash(),
		PayloadSize: uint64(len(p.Payload)),
		Fee:         p.DCs(),
		Routing:     p.Routing,
		Region:      region,
		Hotspot:     kp.PublicKey(),
	}
	data, err := offer.SigningBytes()
	if err != nil {
		return nil, err
	}
	if offer.Signature, err = kp.Sign(data); err != nil {
		return nil, fmt.Errorf("signing offer: %w", err)
	}
	return offer, nil
}

// SigningBytes returns the bytes covered by the offer signature.
func (o *Offer) SigningBytes() ([]byte, error) {
	unsigned := *o
	unsigned.Signature = nil
	return cbor.Marshal(&unsigned)
}

// VerifySignature checks the offer against its hotspot key.
func (o *Offer) VerifySignature() bool {
	data, err := o.SigningBytes()
	if err != nil {
		return false
	}
	return keys.PublicKey(o.Hotspot).Verify(data, o.Signature)
}

// NewPacket builds the message delivering a purchased packet, signed by the
// hotspot keypair. hold is truncated to milliseconds.
func NewPacket(p *packet.Packet, kp *keys.Keypair, region packet.Region, hold time.Duration) (*Packet, error) {
	if p == nil {
		return nil, ErrNilPacket
	}
	if hold < 0 {
		hold = 0
	}
	msg := &Packet{
		Packet:   p,
		Hotspot:  kp.PublicKey(),
		Region:   region,
		HoldTime: uint64(hold.Milliseconds()),
	}
	data, err := msg.SigningBytes()
	if err != nil {
		return nil, err
	}
	if msg.Signature, err = kp.Sign(data); err != nil {
		return nil, fmt.Errorf("signing packet: %w", err)
	}
	return msg, nil
}

// SigningBytes returns the bytes covered by the packet signature.
func (p *Packet) SigningBytes() ([]byte, error) {
	unsigned := *p
	unsigned.Signature = nil
	return cbor.Marshal(&unsigned)
}

// VerifySignature checks the packet message against its hotspot key.
func (p *Packet) VerifySignature() bool {
	data, err := p.SigningBytes()
	if err != nil {
		return false
	}
	return keys.PublicKey(p.Hotspot).Verify(data, p.Signature)
}
