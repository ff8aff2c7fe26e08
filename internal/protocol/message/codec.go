package message

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderSizeUncompressed is the size of an uncompressed frame header.
	// Format: 4 bytes (6 bits flags + 26 bits size) + 2 bytes (type)
	HeaderSizeUncompressed = 6

	// HeaderSizeCompressed adds 4 bytes of uncompressed size.
	HeaderSizeCompressed = 10

	// MaxMessageSize bounds both the framed and the decompressed payload.
	MaxMessageSize = 4 * 1024 * 1024

	// MaxPayloadSizeBits is the number of bits used for payload size.
	MaxPayloadSizeBits = 26

	// MaxPayloadSize is the maximum payload size that can be encoded.
	MaxPayloadSize = (1 << MaxPayloadSizeBits) - 1
)

var (
	// ErrMessageTooLarge is returned when a message exceeds MaxMessageSize.
	ErrMessageTooLarge = errors.New("message too large")
	// ErrInvalidHeader is returned when the frame header is invalid.
	ErrInvalidHeader = errors.New("invalid message header")
	// ErrUnknownCompression is returned for unknown compression algorithms.
	ErrUnknownCompression = errors.New("unknown compression algorithm")
	// ErrTruncatedMessage is returned when a frame is truncated.
	ErrTruncatedMessage = errors.New("truncated message")
)

// CompressionAlgorithm identifies the payload compression of a frame.
type CompressionAlgorithm uint8

const (
	AlgorithmNone CompressionAlgorithm = 0
	AlgorithmLZ4  CompressionAlgorithm = 1
)

// Header is a parsed frame header.
type Header struct {
	PayloadSize      uint32
	MessageType      MessageType
	Compressed       bool
	UncompressedSize uint32
	Algorithm        CompressionAlgorithm
}

// HeaderSize returns the encoded size of the header.
func (h *Header) HeaderSize() int {
	if h.Compressed {
		return HeaderSizeCompressed
	}
	return HeaderSizeUncompressed
}

// TotalSize returns the size of header plus payload.
func (h *Header) TotalSize() int {
	return h.HeaderSize() + int(h.PayloadSize)
}

// EncodeHeader writes a frame header into buf, which must hold at least
// HeaderSizeUncompressed bytes, or HeaderSizeCompressed when compressed.
func EncodeHeader(buf []byte, payloadSize uint32, msgType MessageType, algorithm CompressionAlgorithm, uncompressedSize uint32) error {
	if payloadSize > MaxPayloadSize {
		return ErrMessageTooLarge
	}

	compressed := algorithm != AlgorithmNone
	requiredSize := HeaderSizeUncompressed
	if compressed {
		requiredSize = HeaderSizeCompressed
	}
	if len(buf) < requiredSize {
		return fmt.Errorf("buffer too small: need %d, got %d", requiredSize, len(buf))
	}

	// bit 7 = compression flag, bits 4-6 = algorithm, low 26 bits = size
	sizeWithFlags := payloadSize
	if compressed {
		sizeWithFlags |= uint32(0x80|(uint8(algorithm)<<4)) << 24
	}
	binary.BigEndian.PutUint32(buf[0:4], sizeWithFlags)
	binary.BigEndian.PutUint16(buf[4:6], uint16(msgType))

	if compressed {
		binary.BigEndian.PutUint32(buf[6:10], uncompressedSize)
	}
	return nil
}

// DecodeHeader parses a frame header. buf must hold the full header.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSizeUncompressed {
		return nil, ErrTruncatedMessage
	}

	h := &Header{}
	firstFour := binary.BigEndian.Uint32(buf[0:4])

	if buf[0]&0x80 != 0 {
		h.Compressed = true
		h.Algorithm = CompressionAlgorithm((buf[0] >> 4) & 0x07)
		if h.Algorithm != AlgorithmLZ4 {
			return nil, ErrUnknownCompression
		}
	} else if buf[0]&0xFC != 0 {
		return nil, ErrInvalidHeader
	}

	h.PayloadSize = firstFour & MaxPayloadSize
	h.MessageType = MessageType(binary.BigEndian.Uint16(buf[4:6]))

	if h.Compressed {
		if len(buf) < HeaderSizeCompressed {
			return nil, ErrTruncatedMessage
		}
		h.UncompressedSize = binary.BigEndian.Uint32(buf[6:10])
		if h.UncompressedSize > MaxMessageSize {
			return nil, ErrMessageTooLarge
		}
	}

	if h.PayloadSize > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}
	return h, nil
}

// ReadFrame reads one frame and returns its header and the decompressed
// payload.
func ReadFrame(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSizeCompressed)
	if _, err := io.ReadFull(r, headerBuf[:HeaderSizeUncompressed]); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	if headerBuf[0]&0x80 != 0 {
		if _, err := io.ReadFull(r, headerBuf[HeaderSizeUncompressed:HeaderSizeCompressed]); err != nil {
			return nil, nil, fmt.Errorf("failed to read compressed header: %w", err)
		}
	}

	header, err := DecodeHeader(headerBuf)
	if err != nil {
		return nil, nil, err
	}

	payload := make([]byte, header.PayloadSize)
	if header.PayloadSize > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("failed to read payload: %w", err)
		}
	}

	if header.Compressed {
		payload, err = DecompressLZ4(payload, int(header.UncompressedSize))
		if err != nil {
			return nil, nil, err
		}
	}
	return header, payload, nil
}

// WriteFrame writes payload with a frame header, compressed when compress
// is set and it is worthwhile. It returns the number of bytes written.
func WriteFrame(w io.Writer, msgType MessageType, payload []byte, compress bool) (int, error) {
	algorithm := AlgorithmNone
	body := payload
	if compress {
		if compressed, ok := CompressIfWorthwhile(msgType, payload); ok {
			algorithm = AlgorithmLZ4
			body = compressed
		}
	}

	headerSize := HeaderSizeUncompressed
	if algorithm != AlgorithmNone {
		headerSize = HeaderSizeCompressed
	}
	if len(body) > MaxMessageSize {
		return 0, ErrMessageTooLarge
	}

	buf := make([]byte, headerSize+len(body))
	if err := EncodeHeader(buf, uint32(len(body)), msgType, algorithm, uint32(len(payload))); err != nil {
		return 0, err
	}
	copy(buf[headerSize:], body)

	return w.Write(buf)
}

// ReadMessage reads and decodes one message.
func ReadMessage(r io.Reader) (*Message, int, error) {
	header, payload, err := ReadFrame(r)
	if err != nil {
		return nil, 0, err
	}
	msg, err := Decode(header.MessageType, payload)
	if err != nil {
		return nil, header.TotalSize(), err
	}
	return msg, header.TotalSize(), nil
}

// WriteMessage encodes and writes one message, returning the bytes written.
func WriteMessage(w io.Writer, msg *Message, compress bool) (int, error) {
	payload, err := Encode(msg)
	if err != nil {
		return 0, err
	}
	return WriteFrame(w, msg.Type(), payload, compress)
}
