package transport

import (
	"sync/atomic"
	"time"
)

// Queue is a bounded FIFO of messages handed from the reader goroutine to the
// caller. When full, Push drops the oldest message so a caller that stops
// draining never blocks the reader or grows memory.
type Queue struct {
	ch      chan []byte
	onDrop  func([]byte)
	dropped atomic.Uint64
}

func NewQueue(size int, onDrop func([]byte)) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan []byte, size), onDrop: onDrop}
}

// Push enqueues msg, evicting the oldest entries while the queue is full.
func (q *Queue) Push(msg []byte) {
	for {
		select {
		case q.ch <- msg:
			return
		default:
		}
		select {
		case old := <-q.ch:
			q.dropped.Add(1)
			if q.onDrop != nil {
				q.onDrop(old)
			}
		default:
		}
	}
}

// Pop returns the oldest message, waiting at most timeout. It gives up early
// when done is closed.
func (q *Queue) Pop(timeout time.Duration, done <-chan struct{}) ([]byte, bool) {
	select {
	case m := <-q.ch:
		return m, true
	default:
	}
	if timeout <= 0 {
		return nil, false
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case m := <-q.ch:
		return m, true
	case <-t.C:
		return nil, false
	case <-done:
		return nil, false
	}
}

// Drain discards everything queued and returns what was removed.
func (q *Queue) Drain() [][]byte {
	var out [][]byte
	for {
		select {
		case m := <-q.ch:
			out = append(out, m)
		default:
			return out
		}
	}
}

func (q *Queue) Len() int        { return len(q.ch) }
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
