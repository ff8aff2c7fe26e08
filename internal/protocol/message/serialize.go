package message

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goLoRaRouter/internal/codec/cbor"
)

// ErrUnknownType is returned when decoding an unrecognised message type.
var ErrUnknownType = errors.New("unknown message type")

// Encode encodes the message payload to CBOR. An empty envelope encodes to
// no bytes.
func Encode(msg *Message) ([]byte, error) {
	if msg.Type() == TypeNone {
		return nil, nil
	}
	return cbor.Marshal(msg.Payload)
}

// Decode decodes a payload of the given type.
func Decode(msgType MessageType, data []byte) (*Message, error) {
	if msgType == TypeNone {
		if len(data) > 0 {
			return nil, fmt.Errorf("%w: %d bytes in empty envelope", ErrInvalidHeader, len(data))
		}
		return &Message{}, nil
	}

	payload, err := newPayload(msgType)
	if err != nil {
		return nil, err
	}
	if err := cbor.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", msgType, err)
	}
	return &Message{Payload: payload}, nil
}

func newPayload(msgType MessageType) (Payload, error) {
	switch msgType {
	case TypeBanner:
		return &Banner{}, nil
	case TypeOffer:
		return &Offer{}, nil
	case TypePurchase:
		return &Purchase{}, nil
	case TypePacket:
		return &Packet{}, nil
	case TypeResponse:
		return &Response{}, nil
	case TypeReject:
		return &Reject{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, msgType)
	}
}
