package client

import (
	"time"

	"go.uber.org/zap"

	"thingset/pkg/transport"
)

// Option configures a Client.
type Option func(*settings)

type settings struct {
	log       *zap.Logger
	timeout   time.Duration
	metrics   bool
	cacheTTL  time.Duration
	queueSize int
	getPaths  bool
}

func defaultSettings() settings {
	return settings{
		log:      zap.NewNop(),
		timeout:  transport.DefaultReceiveTimeout,
		getPaths: true,
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTimeout bounds the wait for each response.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetrics records requests, timeouts and path lookups in prometheus.
func WithMetrics() Option { return func(s *settings) { s.metrics = true } }

// WithPathCache remembers resolved paths for ttl. Off by default: a node may
// be reflashed with a different object tree while the client runs.
func WithPathCache(ttl time.Duration) Option { return func(s *settings) { s.cacheTTL = ttl } }

// WithQueueSize sets the receive queue capacity of backends the client opens itself.
func WithQueueSize(n int) Option { return func(s *settings) { s.queueSize = n } }

// WithPathLookup sets whether Fetch and Get resolve paths when the call does
// not say otherwise. Default true.
func WithPathLookup(enabled bool) Option { return func(s *settings) { s.getPaths = enabled } }

// CallOption tunes a single Fetch or Get.
type CallOption func(*callSettings)

type callSettings struct {
	getPaths bool
}

// WithoutPaths skips path resolution for this call.
func WithoutPaths() CallOption { return func(c *callSettings) { c.getPaths = false } }

func (c *Client) callSettings(opts []CallOption) callSettings {
	cs := callSettings{getPaths: c.settings.getPaths}
	for _, o := range opts {
		o(&cs)
	}
	return cs
}
