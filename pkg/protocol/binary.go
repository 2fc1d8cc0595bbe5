package protocol

import (
	"fmt"

	"thingset/pkg/protocol/codec"
)

// BinaryEncoder builds `<opcode><cbor item>...` requests with deterministic CBOR.
type BinaryEncoder struct {
	cbor codec.Codec
}

func NewBinaryEncoder() BinaryEncoder { return BinaryEncoder{cbor: codec.MustCBOR()} }

func (BinaryEncoder) Encoding() Encoding { return EncodingBinary }

func (e BinaryEncoder) EncodeGet(id ID) ([]byte, error) {
	if id.IsNone() {
		return nil, ErrInvalidID
	}
	return e.build(OpGet, id.wire())
}

func (e BinaryEncoder) EncodeFetch(parent ID, ids []ID) ([]byte, error) {
	if parent.IsNone() {
		return nil, ErrInvalidID
	}
	if len(ids) == 0 {
		req, err := e.build(OpFetch, parent.wire())
		if err != nil {
			return nil, err
		}
		return append(req, cborNull), nil
	}
	return e.build(OpFetch, parent.wire(), wireIDs(ids))
}

// EncodeUpdate writes `<parent> {<id>: <value>}`; a missing parent is sent as null.
// A map value is a group write and is sent as `<id> {<key>: <value>, ...}`.
func (e BinaryEncoder) EncodeUpdate(parent, id ID, value any) ([]byte, error) {
	if id.IsNone() {
		return nil, ErrInvalidID
	}
	v, err := coerceBinary(value)
	if err != nil {
		return nil, err
	}
	if isMap(value) {
		return e.build(OpUpdate, id.wire(), v)
	}
	return e.build(OpUpdate, parent.wire(), map[any]any{id.wire(): v})
}

func (e BinaryEncoder) EncodeExec(id ID, args []any) ([]byte, error) {
	if id.IsNone() {
		return nil, ErrInvalidID
	}
	v, err := coerceBinary(args)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []any{}
	}
	return e.build(OpExec, id.wire(), v)
}

func (e BinaryEncoder) EncodeGetPath(id ID) ([]byte, error) {
	if !id.IsNum() {
		return nil, ErrInvalidID
	}
	return e.build(OpFetch, uint64(IDPaths), []any{id.wire()})
}

func (e BinaryEncoder) build(op Opcode, items ...any) ([]byte, error) {
	req := []byte{byte(op)}
	for _, it := range items {
		b, err := e.cbor.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", op, err)
		}
		req = append(req, b...)
	}
	return req, nil
}

func wireIDs(ids []ID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id.wire()
	}
	return out
}

// BinaryDecoder parses `<status byte>[<cbor endpoint>]<cbor payload>`.
type BinaryDecoder struct {
	cbor codec.SeqCodec
}

func NewBinaryDecoder() BinaryDecoder { return BinaryDecoder{cbor: codec.MustCBOR()} }

func (d BinaryDecoder) Decode(msg []byte) (Status, any, error) {
	if len(msg) == 0 {
		return StatusNone, nil, ErrEmptyMessage
	}
	status := Status(msg[0])
	if status < 0x80 {
		return StatusNone, nil, fmt.Errorf("%w: status byte 0x%02X", ErrMalformed, msg[0])
	}
	if !status.OK() || len(msg) == 1 {
		return status, nil, nil
	}
	var first any
	rest, err := d.cbor.UnmarshalFirst(msg[1:], &first)
	if err != nil {
		return StatusNone, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if first != nil || len(rest) == 0 {
		return status, first, nil
	}
	// a leading null is the endpoint placeholder; the payload follows it
	var payload any
	if _, err := d.cbor.UnmarshalFirst(rest, &payload); err != nil {
		return StatusNone, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return status, payload, nil
}
