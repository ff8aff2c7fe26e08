// Package cbor provides the canonical CBOR encoding shared by the wire
// protocol and the state channel store.
//
// Encoding is canonical (sorted map keys, shortest integer forms) so the
// bytes produced for a value are stable and can be signed.
package cbor

import (
	"errors"
	"fmt"

	"github.com/ugorji/go/codec"
)

// ErrEmpty is returned when decoding an empty buffer.
var ErrEmpty = errors.New("cbor: empty input")

var handle = newHandle()

func newHandle() *codec.CborHandle {
	h := &codec.CborHandle{}
	h.Canonical = true
	return h
}

// Marshal encodes v to canonical CBOR.
func Marshal(v interface{}) ([]byte, error) {
	var out []byte
	enc := codec.NewEncoderBytes(&out, handle)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("cbor encode: %w", err)
	}
	return out, nil
}

// Unmarshal decodes CBOR data into v, which must be a pointer.
func Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	dec := codec.NewDecoderBytes(data, handle)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("cbor decode: %w", err)
	}
	return nil
}
