package client

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"thingset/pkg/protocol"
)

// Fetch reads children of parent. With no ids the node returns every child
// and the Response holds a single Value for parent; otherwise there is one
// Value per id, in request order.
func (c *Client) Fetch(parent protocol.ID, ids []protocol.ID, opts ...CallOption) (*Response, error) {
	cs := c.callSettings(opts)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	req, err := c.enc.EncodeFetch(parent, ids)
	if err != nil {
		return nil, fmt.Errorf("encode fetch: %w", err)
	}
	rsp, err := c.request(req)
	if err != nil {
		return nil, err
	}
	if rsp.Status.OK() {
		if len(ids) == 0 {
			rsp.Values = []Value{c.value(parent, rsp.Data, cs)}
		} else {
			rsp.Values = c.values(ids, rsp.Data, cs)
		}
	}
	c.record("fetch", rsp.Status, start)
	return rsp, nil
}

// Get reads one object.
func (c *Client) Get(id protocol.ID, opts ...CallOption) (*Response, error) {
	cs := c.callSettings(opts)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	req, err := c.enc.EncodeGet(id)
	if err != nil {
		return nil, fmt.Errorf("encode get: %w", err)
	}
	rsp, err := c.request(req)
	if err != nil {
		return nil, err
	}
	if rsp.Status.OK() {
		rsp.Values = []Value{c.value(id, rsp.Data, cs)}
	}
	c.record("get", rsp.Status, start)
	return rsp, nil
}

// Update writes value to id. parent may be the zero ID. float64 values are
// sent as 32-bit floats over the binary encoding. A map value writes several
// children of the group id at once and parent is not used.
func (c *Client) Update(id protocol.ID, value any, parent protocol.ID) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	req, err := c.enc.EncodeUpdate(parent, id, value)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	rsp, err := c.request(req)
	if err != nil {
		return nil, err
	}
	c.record("update", rsp.Status, start)
	return rsp, nil
}

// Exec invokes the function id with args.
func (c *Client) Exec(id protocol.ID, args []any) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	req, err := c.enc.EncodeExec(id, args)
	if err != nil {
		return nil, fmt.Errorf("encode exec: %w", err)
	}
	rsp, err := c.request(req)
	if err != nil {
		return nil, err
	}
	c.record("exec", rsp.Status, start)
	return rsp, nil
}

// request runs one exchange and decodes the reply. Timeouts and unparseable
// replies give a Response with StatusNone, not an error.
func (c *Client) request(req []byte) (*Response, error) {
	raw, ok, err := c.exchange(req)
	if err != nil {
		return nil, err
	}
	rsp := &Response{Backend: c.backend.Kind(), Raw: raw}
	if !ok {
		return rsp, nil
	}
	status, data, err := c.dec.Decode(raw)
	if err != nil {
		c.log.Warn("malformed response", zap.Binary("raw", raw), zap.Error(err))
		return rsp, nil
	}
	rsp.Status, rsp.Data = status, data
	return rsp, nil
}

func (c *Client) legacyText() bool { return c.enc.Encoding() == protocol.EncodingText }

func (c *Client) value(id protocol.ID, data any, cs callSettings) Value {
	if c.legacyText() {
		return Value{Value: data, Path: id.String()}
	}
	v := Value{ID: id, Value: data}
	if cs.getPaths {
		v.Path, _ = c.resolve(id)
	}
	return v
}

// values pairs requested ids with the elements of the returned array. A reply
// with fewer elements than ids yields fewer Values.
func (c *Client) values(ids []protocol.ID, data any, cs callSettings) []Value {
	list, ok := data.([]any)
	if !ok {
		c.log.Warn("fetch response is not an array", zap.Any("data", data))
		return nil
	}
	if len(list) != len(ids) {
		c.log.Warn("fetch response length mismatch", zap.Int("requested", len(ids)), zap.Int("returned", len(list)))
	}
	n := min(len(list), len(ids))
	out := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c.value(ids[i], list[i], cs))
	}
	return out
}
