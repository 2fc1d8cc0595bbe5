package codec

// Codec marshals generic values (scalars, slices, maps) for the wire.
// Implementations must be deterministic so encoded requests can be compared byte for byte.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// SeqCodec is a Codec able to consume a sequence of concatenated items,
// e.g. the items that follow the status byte of a binary response.
type SeqCodec interface {
	Codec
	// UnmarshalFirst decodes the first item in data into v and returns the remaining bytes.
	UnmarshalFirst(data []byte, v any) (rest []byte, err error)
}
