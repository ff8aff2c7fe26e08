// Package message implements the state channel protocol spoken between a
// router client and its router: the message variants, their signing rules
// and the framed wire encoding.
package message

// MessageType identifies a protocol message variant on the wire.
type MessageType uint16

const (
	// TypeNone frames an envelope without an inner message.
	TypeNone     MessageType = 0
	TypeBanner   MessageType = 1
	TypeOffer    MessageType = 2
	TypePurchase MessageType = 3
	TypePacket   MessageType = 4
	TypeResponse MessageType = 5
	TypeReject   MessageType = 6
)

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeBanner:
		return "banner"
	case TypeOffer:
		return "offer"
	case TypePurchase:
		return "purchase"
	case TypePacket:
		return "packet"
	case TypeResponse:
		return "response"
	case TypeReject:
		return "reject"
	default:
		return "unknown"
	}
}

// AllTypes lists every message type carrying a payload.
var AllTypes = []MessageType{
	TypeBanner,
	TypeOffer,
	TypePurchase,
	TypePacket,
	TypeResponse,
	TypeReject,
}
