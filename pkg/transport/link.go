package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Channel is the raw device a Link drives (serial port, TCP conn, pipe).
// Read must return within the read timeout: either via SetReadDeadline, which
// the Link calls before every read when available, or by returning (0, nil).
type Channel interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Link is the Backend plumbing shared by every channel type: it runs the reader
// goroutine, owns the queue and guards the channel against use after close.
// Concrete backends open the channel and hand it to Attach.
type Link struct {
	kind   Kind
	opts   Options
	framer func() Framer
	log    *zap.Logger

	mu    sync.Mutex
	ch    Channel
	queue *Queue
	stop  chan struct{}
	done  chan struct{}

	wmu sync.Mutex
}

// NewLink prepares a Link; newFramer is called on every Attach so partial data
// never survives a reconnect.
func NewLink(kind Kind, newFramer func() Framer, opts Options, log *zap.Logger) *Link {
	if log == nil {
		log = zap.NewNop()
	}
	return &Link{kind: kind, opts: opts.withDefaults(), framer: newFramer, log: log.With(zap.String("backend", kind.String()))}
}

func (l *Link) Kind() Kind { return l.kind }

// Connected reports whether a channel is attached.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ch != nil
}

// Attach starts reading from ch.
func (l *Link) Attach(ch Channel) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ch != nil {
		return ErrConnected
	}
	onDrop := func(msg []byte) {
		l.log.Warn("receive queue full, dropped oldest message", zap.Int("bytes", len(msg)))
		if l.opts.OnDrop != nil {
			l.opts.OnDrop(msg)
		}
	}
	l.ch = ch
	l.queue = NewQueue(l.opts.QueueSize, onDrop)
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.readLoop(ch, l.framer(), l.queue, l.stop, l.done)
	return nil
}

// Detach stops the reader and only then closes the channel, so nothing reads
// from or writes to a closed device. Calling it when detached is a no-op.
func (l *Link) Detach() error {
	l.mu.Lock()
	ch, stop, done := l.ch, l.stop, l.done
	l.ch = nil
	l.mu.Unlock()
	if ch == nil {
		return nil
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(4*l.opts.ReadTimeout + time.Second):
		// a channel ignoring its read timeout; closing it below unblocks the read
		l.log.Warn("reader did not stop in time, closing channel under it")
	}
	err := ch.Close()
	<-done
	if err != nil {
		return fmt.Errorf("%s close: %w", l.kind, err)
	}
	l.log.Debug("disconnected")
	return nil
}

// Send writes b in full.
func (l *Link) Send(b []byte) error {
	l.mu.Lock()
	ch := l.ch
	l.mu.Unlock()
	if ch == nil {
		return ErrNotConnected
	}
	l.wmu.Lock()
	defer l.wmu.Unlock()
	for len(b) > 0 {
		n, err := ch.Write(b)
		if err != nil {
			return fmt.Errorf("%s send: %w", l.kind, err)
		}
		b = b[n:]
	}
	return nil
}

// Receive returns the oldest queued message or gives up after timeout.
// It returns at once when detached, and early when Detach runs meanwhile.
func (l *Link) Receive(timeout time.Duration) ([]byte, bool) {
	l.mu.Lock()
	q, stop := l.queue, l.stop
	connected := l.ch != nil
	l.mu.Unlock()
	if !connected {
		return nil, false
	}
	return q.Pop(timeout, stop)
}

// Drain drops messages that arrived before the next request was sent; they
// cannot be its response. It returns the discarded messages.
func (l *Link) Drain() [][]byte {
	l.mu.Lock()
	q := l.queue
	l.mu.Unlock()
	if q == nil {
		return nil
	}
	return q.Drain()
}

// Dropped is the number of messages evicted from a full queue since Attach.
func (l *Link) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.queue == nil {
		return 0
	}
	return l.queue.Dropped()
}

func (l *Link) readLoop(ch Channel, framer Framer, q *Queue, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	dl, hasDeadline := ch.(readDeadliner)
	buf := make([]byte, ReadBufferSize)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if hasDeadline {
			_ = dl.SetReadDeadline(time.Now().Add(l.opts.ReadTimeout))
		}
		n, err := ch.Read(buf)
		if n > 0 {
			l.log.Debug("rx", zap.Int("bytes", n), zap.Binary("data", buf[:n]))
			for _, msg := range framer.Feed(buf[:n]) {
				q.Push(msg)
			}
		}
		if err == nil || IsTimeout(err) {
			continue
		}
		select {
		case <-stop:
		default:
			l.log.Warn("reader stopped", zap.Error(err))
		}
		return
	}
}

// IsTimeout reports whether err is a read deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
