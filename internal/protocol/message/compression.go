package message

import (
	"errors"

	"github.com/pierrec/lz4"
)

// MinCompressibleSize is the smallest payload worth compressing.
const MinCompressibleSize = 70

// ErrDecompressionFailed is returned when a compressed payload is corrupt.
var ErrDecompressionFailed = errors.New("decompression failed")

// CompressLZ4 compresses data as a single LZ4 block. It returns nil when
// compression would not save space.
func CompressLZ4(data []byte) ([]byte, error) {
	if len(data) < MinCompressibleSize {
		return nil, nil
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 || n >= len(data) {
		return nil, nil
	}
	return compressed[:n], nil
}

// DecompressLZ4 expands an LZ4 block to exactly uncompressedSize bytes.
func DecompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	if uncompressedSize <= 0 || uncompressedSize > MaxMessageSize {
		return nil, ErrDecompressionFailed
	}

	decompressed := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(compressed, decompressed)
	if err != nil {
		return nil, errors.Join(ErrDecompressionFailed, err)
	}
	if n != uncompressedSize {
		return nil, ErrDecompressionFailed
	}
	return decompressed, nil
}

// ShouldCompress reports whether messages of this type are worth trying to
// compress. Only variants carrying a channel state or a packet payload are.
func ShouldCompress(msgType MessageType) bool {
	switch msgType {
	case TypeBanner, TypePurchase, TypePacket, TypeResponse:
		return true
	default:
		return false
	}
}

// CompressIfWorthwhile returns (compressed, true) when compression was
// applied and (data, false) otherwise.
func CompressIfWorthwhile(msgType MessageType, data []byte) ([]byte, bool) {
	if !ShouldCompress(msgType) || len(data) < MinCompressibleSize {
		return data, false
	}
	compressed, err := CompressLZ4(data)
	if err != nil || compressed == nil {
		return data, false
	}
	return compressed, true
}
