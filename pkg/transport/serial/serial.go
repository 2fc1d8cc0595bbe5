// Package serial connects to a node's shell over a serial port and speaks the
// text encoding: one response per line, echo and prompt lines filtered out.
package serial

import (
	"context"
	"fmt"
	"io"
	"time"

	bugst "go.bug.st/serial"
	"go.uber.org/zap"

	"thingset/pkg/transport"
)

const (
	DefaultPort = "/dev/pts/5"
	DefaultBaud = 115200
)

// Config selects the port.
type Config struct {
	Port string
	Baud int
}

// Port is the part of a serial port the backend uses. go.bug.st/serial ports
// return (0, nil) from Read when the read timeout expires.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Opener opens a port; replaced in tests.
type Opener func(name string, baud int) (Port, error)

// OpenPort opens name as 8N1 at baud.
func OpenPort(name string, baud int) (Port, error) {
	return bugst.Open(name, &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
}

// Backend is a transport.Backend over a serial port.
type Backend struct {
	*transport.Link
	cfg  Config
	opts transport.Options
	open Opener
}

func New(cfg Config, opts transport.Options, log *zap.Logger) *Backend {
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = transport.DefaultReadTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	shell := log.With(zap.String("port", cfg.Port))
	newFramer := func() transport.Framer {
		f := transport.NewLineFramer()
		f.Seen = func(line string) { shell.Debug("shell", zap.String("line", line)) }
		return f
	}
	return &Backend{
		Link: transport.NewLink(transport.KindSerial, newFramer, opts, log),
		cfg:  cfg,
		opts: opts,
		open: OpenPort,
	}
}

// WithOpener swaps the function used to open the port.
func (b *Backend) WithOpener(o Opener) *Backend {
	b.open = o
	return b
}

func (b *Backend) Config() Config { return b.cfg }

// Connect opens the port and starts the reader. Connecting twice is a no-op.
func (b *Backend) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.Connected() {
		return nil
	}
	p, err := b.open(b.cfg.Port, b.cfg.Baud)
	if err != nil {
		return fmt.Errorf("serial: open %s: %w", b.cfg.Port, err)
	}
	if err := p.SetReadTimeout(b.opts.ReadTimeout); err != nil {
		_ = p.Close()
		return fmt.Errorf("serial: set read timeout: %w", err)
	}
	if err := b.Attach(p); err != nil {
		// a concurrent Connect got there first
		_ = p.Close()
		return err
	}
	return nil
}

func (b *Backend) Disconnect() error { return b.Detach() }

var _ transport.Backend = (*Backend)(nil)
