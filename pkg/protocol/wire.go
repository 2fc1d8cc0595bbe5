package protocol

import "fmt"

// Encoder turns logical requests into transport-ready bytes.
type Encoder interface {
	Encoding() Encoding
	EncodeGet(id ID) ([]byte, error)
	// EncodeFetch requests ids below parent; no ids means all children of parent.
	EncodeFetch(parent ID, ids []ID) ([]byte, error)
	EncodeUpdate(parent, id ID, value any) ([]byte, error)
	EncodeExec(id ID, args []any) ([]byte, error)
	// EncodeGetPath asks the IDPaths group for the path of a numeric id.
	EncodeGetPath(id ID) ([]byte, error)
}

// Decoder parses one raw response. A message without a usable header yields
// StatusNone and an error; payloads are only decoded for successful statuses.
type Decoder interface {
	Decode(msg []byte) (Status, any, error)
}

// For returns the encoder/decoder pair for enc.
func For(enc Encoding) (Encoder, Decoder, error) {
	switch enc {
	case EncodingText:
		return TextEncoder{}, TextDecoder{}, nil
	case EncodingBinary:
		return NewBinaryEncoder(), NewBinaryDecoder(), nil
	default:
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(enc))
	}
}

// ParseEncoding maps "text" / "binary" (also "cbor") to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "text":
		return EncodingText, nil
	case "binary", "cbor":
		return EncodingBinary, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}
