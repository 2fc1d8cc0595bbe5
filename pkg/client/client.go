package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"thingset/pkg/config"
	"thingset/pkg/memkv"
	"thingset/pkg/observability"
	"thingset/pkg/protocol"
	"thingset/pkg/transport"
	"thingset/pkg/transport/serial"
	"thingset/pkg/transport/tcp"
)

// Client is safe for concurrent use; calls are serialised.
type Client struct {
	settings settings
	log      *zap.Logger

	mu      sync.Mutex
	backend transport.Backend
	enc     protocol.Encoder
	dec     protocol.Decoder
	paths   *memkv.Store[string]
	closed  atomic.Bool
}

type drainer interface {
	Drain() [][]byte
}

// New connects b and returns a Client speaking enc over it.
func New(ctx context.Context, b transport.Backend, enc protocol.Encoding, opts ...Option) (*Client, error) {
	s := defaultSettings()
	for _, o := range opts {
		o(&s)
	}
	return newClient(ctx, b, enc, s)
}

func newClient(ctx context.Context, b transport.Backend, enc protocol.Encoding, s settings) (*Client, error) {
	e, d, err := protocol.For(enc)
	if err != nil {
		return nil, err
	}
	log := s.log.With(zap.String("backend", b.Kind().String()), zap.Stringer("encoding", enc))
	if err := b.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	log.Debug("connected")
	return &Client{
		settings: s,
		log:      log,
		backend:  b,
		enc:      e,
		dec:      d,
		paths:    newPathCache(s.cacheTTL),
	}, nil
}

// NewSerial opens a serial port and speaks the text encoding.
func NewSerial(ctx context.Context, cfg serial.Config, opts ...Option) (*Client, error) {
	s := defaultSettings()
	for _, o := range opts {
		o(&s)
	}
	b := serial.New(cfg, s.transportOptions(transport.KindSerial), s.log)
	return newClient(ctx, b, protocol.EncodingText, s)
}

// NewSocket connects over TCP and speaks the binary encoding.
func NewSocket(ctx context.Context, cfg tcp.Config, opts ...Option) (*Client, error) {
	s := defaultSettings()
	for _, o := range opts {
		o(&s)
	}
	b := tcp.New(cfg, s.transportOptions(transport.KindSocket), s.log)
	return newClient(ctx, b, protocol.EncodingBinary, s)
}

// Dial builds the backend described by cfg. Options given here override the
// values taken from cfg.
func Dial(ctx context.Context, cfg config.ClientConfig, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc, err := protocol.ParseEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	kind, err := transport.ParseKind(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownBackend, err)
	}

	s := defaultSettings()
	s.timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	s.queueSize = cfg.QueueSize
	s.getPaths = cfg.GetPaths
	s.cacheTTL = time.Duration(cfg.PathCacheTTLMS) * time.Millisecond
	for _, o := range opts {
		o(&s)
	}

	var b transport.Backend
	switch kind {
	case transport.KindSerial:
		b = serial.New(serial.Config{Port: cfg.Serial.Port, Baud: cfg.Serial.Baud}, s.transportOptions(kind), s.log)
	case transport.KindSocket:
		b = tcp.New(tcp.Config{
			Address:     cfg.Socket.Address,
			Port:        cfg.Socket.Port,
			DialTimeout: time.Duration(cfg.Socket.DialTimeoutMS) * time.Millisecond,
		}, s.transportOptions(kind), s.log)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, kind)
	}
	return newClient(ctx, b, enc, s)
}

func (s settings) transportOptions(kind transport.Kind) transport.Options {
	o := transport.Options{QueueSize: s.queueSize}
	if s.metrics {
		backend := kind.String()
		o.OnDrop = func([]byte) { observability.RecordQueueDrop(backend) }
	}
	return o
}

func (c *Client) Backend() transport.Kind { return c.backend.Kind() }

func (c *Client) Encoding() protocol.Encoding { return c.enc.Encoding() }

// Disconnect stops the backend. A call waiting for its response returns at
// once with StatusNone; later calls return ErrDisconnected. Calling Disconnect
// again is a no-op.
func (c *Client) Disconnect() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.paths != nil {
		c.paths.Close()
	}
	if err := c.backend.Disconnect(); err != nil {
		return err
	}
	c.log.Debug("disconnected")
	return nil
}

func (c *Client) checkOpen() error {
	if c.closed.Load() {
		return fmt.Errorf("%w: %w", ErrDisconnected, transport.ErrNotConnected)
	}
	return nil
}

// exchange sends req and waits for one message. Anything already queued is
// discarded first: it answers an earlier request that timed out. ok is false
// on timeout. The caller holds c.mu.
func (c *Client) exchange(req []byte) (msg []byte, ok bool, err error) {
	if d, isDrainer := c.backend.(drainer); isDrainer {
		if stale := d.Drain(); len(stale) > 0 {
			c.log.Warn("discarded stale responses", zap.Int("count", len(stale)))
		}
	}
	c.log.Debug("tx", zap.Binary("data", req))
	if err := c.backend.Send(req); err != nil {
		return nil, false, err
	}
	msg, ok = c.backend.Receive(c.settings.timeout)
	if !ok {
		c.log.Warn("no response", zap.Duration("timeout", c.settings.timeout))
		if c.settings.metrics {
			observability.RecordReceiveTimeout(c.backend.Kind().String())
		}
		return nil, false, nil
	}
	c.log.Debug("rx", zap.Binary("data", msg))
	return msg, true, nil
}

func (c *Client) record(op string, status protocol.Status, start time.Time) {
	if !c.settings.metrics {
		return
	}
	observability.RecordRequest(c.backend.Kind().String(), op, status.Class(), time.Since(start))
}

func (c *Client) recordPathLookup(result string) {
	if c.settings.metrics {
		observability.RecordPathLookup(c.backend.Kind().String(), result)
	}
}
