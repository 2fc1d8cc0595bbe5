package client

import (
	"time"

	"go.uber.org/zap"

	"thingset/pkg/memkv"
	"thingset/pkg/protocol"
)

// resolve returns the path of a numeric ID. The root has a fixed path and a
// path ID is its own path; neither costs a round trip. The caller holds c.mu.
func (c *Client) resolve(id protocol.ID) (string, bool) {
	if id.IsRoot() {
		return protocol.RootPath, true
	}
	if id.IsPath() {
		return id.String(), true
	}
	if id.IsNone() {
		return "", false
	}
	key := id.String()
	if c.paths != nil {
		if p, ok := c.paths.Get(key); ok {
			c.recordPathLookup("cached")
			return p, true
		}
	}

	p, err := c.lookupPath(id)
	if err != nil {
		c.log.Warn("path lookup failed", idField(id), zap.Error(err))
		c.recordPathLookup("failed")
		return "", false
	}
	c.recordPathLookup("fetched")
	if c.paths != nil {
		c.paths.Set(key, p, c.settings.cacheTTL)
	}
	return p, true
}

func (c *Client) lookupPath(id protocol.ID) (string, error) {
	req, err := c.enc.EncodeGetPath(id)
	if err != nil {
		return "", err
	}
	raw, ok, err := c.exchange(req)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errNoResponse
	}
	status, data, err := c.dec.Decode(raw)
	if err != nil {
		return "", err
	}
	if !status.OK() {
		return "", &statusError{status}
	}
	if list, ok := data.([]any); ok && len(list) > 0 {
		if p, ok := list[0].(string); ok {
			return p, nil
		}
	}
	return "", errNoPath
}

func newPathCache(ttl time.Duration) *memkv.Store[string] {
	if ttl <= 0 {
		return nil
	}
	return memkv.New[string](memkv.Options{Shards: 4, SweepInterval: ttl, MaxKeys: 4096})
}

func idField(id protocol.ID) zap.Field {
	b, _ := id.MarshalText()
	return zap.ByteString("id", b)
}
