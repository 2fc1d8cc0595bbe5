// Package mem is an in-process Backend over net.Pipe. The far end of the pipe
// plays the node, which makes it useful for tests and simulators.
package mem

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"thingset/pkg/transport"
)

// Handler answers one request with zero or more raw messages.
type Handler func(req []byte) [][]byte

// Backend is the client end of the pipe.
type Backend struct {
	*transport.Link
	newFramer func() transport.Framer

	mu   sync.Mutex
	node net.Conn
}

// NewBinary frames like the TCP backend: every write from the node is one message.
func NewBinary(opts transport.Options, log *zap.Logger) *Backend {
	return newBackend(func() transport.Framer { return transport.ChunkFramer{} }, opts, log)
}

// NewText frames like the serial backend: newline-terminated lines, shell noise dropped.
func NewText(opts transport.Options, log *zap.Logger) *Backend {
	return newBackend(func() transport.Framer { return transport.NewLineFramer() }, opts, log)
}

func newBackend(newFramer func() transport.Framer, opts transport.Options, log *zap.Logger) *Backend {
	return &Backend{
		Link:      transport.NewLink(transport.KindMem, newFramer, opts, log),
		newFramer: newFramer,
	}
}

// Connect creates a fresh pipe. Connecting twice is a no-op.
func (b *Backend) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.Connected() {
		return nil
	}
	c1, c2 := net.Pipe()
	if err := b.Attach(c1); err != nil {
		_ = c1.Close()
		_ = c2.Close()
		return err
	}
	b.mu.Lock()
	b.node = c2
	b.mu.Unlock()
	return nil
}

// Disconnect closes the client end; the node end then reads EOF.
func (b *Backend) Disconnect() error {
	err := b.Detach()
	b.mu.Lock()
	if b.node != nil {
		_ = b.node.Close()
		b.node = nil
	}
	b.mu.Unlock()
	return err
}

// Node returns the node end of the current pipe, nil when disconnected.
func (b *Backend) Node() net.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.node
}

// Serve answers requests on the node end until the pipe closes. Requests are
// split with the same framing as responses. It returns nil on a clean close.
func (b *Backend) Serve(h Handler) error {
	node := b.Node()
	if node == nil {
		return transport.ErrNotConnected
	}
	framer := b.newFramer()
	if lf, ok := framer.(*transport.LineFramer); ok {
		// the node must see its own commands
		lf.Noise = nil
	}
	buf := make([]byte, transport.ReadBufferSize)
	for {
		n, err := node.Read(buf)
		if n > 0 {
			for _, req := range framer.Feed(buf[:n]) {
				for _, rsp := range h(req) {
					if _, werr := node.Write(rsp); werr != nil {
						return ignoreClosed(werr)
					}
				}
			}
		}
		if err != nil {
			return ignoreClosed(err)
		}
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

var _ transport.Backend = (*Backend)(nil)
