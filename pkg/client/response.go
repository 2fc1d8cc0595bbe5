package client

import (
	"fmt"

	"thingset/pkg/protocol"
	"thingset/pkg/transport"
)

// Value is one object from a fetch or get. Over the text encoding ID is empty
// and Path is the address that was requested. Otherwise Path is the resolved
// path, or "" when it was not looked up or the lookup failed.
type Value struct {
	ID    protocol.ID
	Value any
	Path  string
}

// Response is the outcome of one request. Status is protocol.StatusNone when
// nothing arrived in time or the reply could not be parsed; Raw then holds
// whatever did arrive.
type Response struct {
	Backend transport.Kind
	Raw     []byte
	Status  protocol.Status
	Data    any
	Values  []Value
}

func (r *Response) OK() bool { return r.Status.OK() }

// Plain converts decoded data into types encoding/json accepts: CBOR maps
// decode as map[any]any and are rewritten with string keys.
func Plain(v any) any {
	switch x := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = Plain(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Plain(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = Plain(x[i])
		}
		return out
	default:
		return v
	}
}
