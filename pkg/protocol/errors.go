package protocol

import "errors"

var (
	ErrEmptyMessage  = errors.New("protocol: empty message")
	ErrMalformed     = errors.New("protocol: malformed response")
	ErrInvalidID     = errors.New("protocol: invalid object id")
	ErrUnsupported   = errors.New("protocol: unsupported value type")
	ErrUnknownFormat = errors.New("protocol: unknown encoding")
)
