// Package tcp connects to a node's binary ThingSet socket.
package tcp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"thingset/pkg/transport"
)

const (
	DefaultAddress     = "192.0.2.1"
	DefaultPort        = 9001
	DefaultDialTimeout = 5 * time.Second
)

// Config selects the node address.
type Config struct {
	Address     string
	Port        int
	DialTimeout time.Duration
}

// Backend is a transport.Backend over TCP. There is no length prefix on the
// wire: each read of up to transport.ReadBufferSize bytes is one response.
type Backend struct {
	*transport.Link
	cfg Config
}

func New(cfg Config, opts transport.Options, log *zap.Logger) *Backend {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	newFramer := func() transport.Framer { return transport.ChunkFramer{} }
	return &Backend{
		Link: transport.NewLink(transport.KindSocket, newFramer, opts, log.With(zap.String("addr", cfg.Addr()))),
		cfg:  cfg,
	}
}

// Addr is host:port.
func (c Config) Addr() string { return net.JoinHostPort(c.Address, strconv.Itoa(c.Port)) }

func (b *Backend) Config() Config { return b.cfg }

// Connect dials the node and starts the reader. Connecting twice is a no-op.
func (b *Backend) Connect(ctx context.Context) error {
	if b.Connected() {
		return nil
	}
	d := &net.Dialer{Timeout: b.cfg.DialTimeout}
	c, err := d.DialContext(ctx, "tcp", b.cfg.Addr())
	if err != nil {
		return fmt.Errorf("tcp: dial %s: %w", b.cfg.Addr(), err)
	}
	if err := b.Attach(c); err != nil {
		_ = c.Close()
		return err
	}
	return nil
}

func (b *Backend) Disconnect() error { return b.Detach() }

var _ transport.Backend = (*Backend)(nil)
