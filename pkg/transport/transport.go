package transport

import (
	"context"
	"errors"
	"time"
)

// Kind identifies the physical channel behind a Backend.
type Kind int

const (
	KindUnknown Kind = iota
	KindSerial
	KindSocket
	KindMem
)

func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindSocket:
		return "socket"
	case KindMem:
		return "mem"
	default:
		return "unknown"
	}
}

// ParseKind maps a config string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "serial":
		return KindSerial, nil
	case "socket", "tcp":
		return KindSocket, nil
	case "mem":
		return KindMem, nil
	default:
		return KindUnknown, errors.New("transport: unknown backend " + s)
	}
}

// Defaults shared by all backends.
const (
	DefaultReceiveTimeout = 500 * time.Millisecond
	DefaultReadTimeout    = 100 * time.Millisecond
	DefaultQueueSize      = 64
	// ReadBufferSize bounds a single read; on stream sockets one read is one message.
	ReadBufferSize = 1024
)

var (
	ErrNotConnected = errors.New("transport: not connected")
	ErrConnected    = errors.New("transport: already connected")
)

// Backend owns one channel to a node. Connect starts a background reader that
// splits incoming bytes into messages and queues them; Receive hands them out
// oldest first.
//
// Exactly one goroutine is expected to call Send/Receive at a time: responses
// carry no request id and are matched to requests purely by order.
type Backend interface {
	Kind() Kind
	Connect(ctx context.Context) error
	// Disconnect stops the reader, then closes the channel. Safe to call twice.
	Disconnect() error
	Send(b []byte) error
	// Receive waits at most timeout for the next message. ok is false on timeout
	// or when the backend is not connected.
	Receive(timeout time.Duration) (msg []byte, ok bool)
}

// Options tune a backend's reader and queue.
type Options struct {
	// ReadTimeout bounds each blocking read so the reader can notice Disconnect.
	ReadTimeout time.Duration
	// QueueSize bounds the receive queue; the oldest message is dropped when full.
	QueueSize int
	// OnDrop is called for every message dropped from a full queue.
	OnDrop func(msg []byte)
}

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	return o
}
