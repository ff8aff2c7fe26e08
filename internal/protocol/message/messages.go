package message

import (
	"github.com/LeJamon/goLoRaRouter/internal/packet"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
)

// Payload is implemented by every message variant.
type Payload interface {
	Type() MessageType
}

// Message is a framed protocol message. Payload is nil for an empty
// envelope.
type Message struct {
	Payload Payload
}

// New wraps a payload in a message.
func New(p Payload) *Message {
	return &Message{Payload: p}
}

// Type returns the payload type, or TypeNone for an empty envelope.
func (m *Message) Type() MessageType {
	if m == nil || m.Payload == nil {
		return TypeNone
	}
	return m.Payload.Type()
}

// Inbound is one item of a transport's receive stream: a message or the
// error that ended the stream.
type Inbound struct {
	Message *Message
	Err     error
}

// Banner announces the state channel the router currently uses for this
// client.
type Banner struct {
	SC *statechannel.Wire `codec:"sc,omitempty"`
}

func (b *Banner) Type() MessageType { return TypeBanner }

// Offer proposes a packet for purchase without revealing its payload.
type Offer struct {
	PacketHash  []byte                     `codec:"packet_hash"`
	PayloadSize uint64                     `codec:"payload_size"`
	Fee         uint64                     `codec:"fee"`
	Routing     *packet.RoutingInformation `codec:"routing,omitempty"`
	Region      packet.Region              `codec:"region"`
	Hotspot     []byte                     `codec:"hotspot"`
	Signature   []byte                     `codec:"signature,omitempty"`
}

func (o *Offer) Type() MessageType { return TypeOffer }

// Purchase is the router's agreement to pay for the packet identified by
// PacketHash, carrying the updated channel state.
type Purchase struct {
	SC         *statechannel.Wire `codec:"sc,omitempty"`
	PacketHash []byte             `codec:"packet_hash,omitempty"`
	Hotspot    []byte             `codec:"hotspot,omitempty"`
	Region     packet.Region      `codec:"region"`
}

func (p *Purchase) Type() MessageType { return TypePurchase }

// Packet delivers a purchased packet to the router. HoldTime is the time
// the packet waited in the client queue, in milliseconds.
type Packet struct {
	Packet    *packet.Packet `codec:"packet"`
	Hotspot   []byte         `codec:"hotspot"`
	Region    packet.Region  `codec:"region"`
	HoldTime  uint64         `codec:"hold_time"`
	Signature []byte         `codec:"signature,omitempty"`
}

func (p *Packet) Type() MessageType { return TypePacket }

// Response carries the router's answer to a delivered packet.
type Response struct {
	Accepted bool           `codec:"accepted"`
	Downlink *packet.Packet `codec:"downlink,omitempty"`
}

func (r *Response) Type() MessageType { return TypeResponse }

// DownlinkPacket returns the packet to transmit back to the device, if the
// response carries one.
func (r *Response) DownlinkPacket() (*packet.Packet, bool) {
	if r == nil || !r.Accepted || r.Downlink == nil {
		return nil, false
	}
	return r.Downlink, true
}

// Reject is the router's refusal of an offer.
type Reject struct {
	PacketHash []byte `codec:"packet_hash,omitempty"`
	Hotspot    []byte `codec:"hotspot,omitempty"`
}

func (r *Reject) Type() MessageType { return TypeReject }
