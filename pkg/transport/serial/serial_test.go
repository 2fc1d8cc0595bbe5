package serial

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thingset/pkg/transport"
)

// fakePort behaves like go.bug.st/serial: Read returns (0, nil) once the read
// timeout passes without data.
type fakePort struct {
	rx      chan []byte
	timeout time.Duration

	mu      sync.Mutex
	written []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{rx: make(chan []byte, 8), closed: make(chan struct{})}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case d := <-p.rx:
		return copy(b, d), nil
	case <-p.closed:
		return 0, io.EOF
	case <-time.After(p.timeout):
		return 0, nil
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func (p *fakePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.written)
}

func TestDefaults(t *testing.T) {
	b := New(Config{}, transport.Options{}, nil)
	assert.Equal(t, Config{Port: DefaultPort, Baud: DefaultBaud}, b.Config())
	assert.Equal(t, transport.KindSerial, b.Kind())
}

func TestConnectReadsLines(t *testing.T) {
	port := newFakePort()
	var openedName string
	var openedBaud int
	b := New(Config{Port: "/dev/ttyTEST", Baud: 9600}, transport.Options{}, zap.NewNop()).
		WithOpener(func(name string, baud int) (Port, error) {
			openedName, openedBaud = name, baud
			return port, nil
		})

	require.NoError(t, b.Connect(context.Background()))
	assert.Equal(t, "/dev/ttyTEST", openedName)
	assert.Equal(t, 9600, openedBaud)
	assert.Equal(t, transport.DefaultReadTimeout, port.timeout)

	require.NoError(t, b.Send([]byte("thingset ?Device\n")))
	assert.Equal(t, "thingset ?Device\n", port.Written())

	port.rx <- []byte("thingset ?Device\r\n")
	port.rx <- []byte(":85 Content. {\"Name\":")
	port.rx <- []byte("\"x\"}\r\nuart:~$ ")

	msg, ok := b.Receive(time.Second)
	require.True(t, ok)
	assert.Equal(t, `:85 Content. {"Name":"x"}`, string(msg))

	_, ok = b.Receive(50 * time.Millisecond)
	assert.False(t, ok)

	require.NoError(t, b.Disconnect())
	require.NoError(t, b.Disconnect())
	assert.ErrorIs(t, b.Send([]byte("x")), transport.ErrNotConnected)
}

func TestConnectOpenError(t *testing.T) {
	boom := errors.New("no such device")
	b := New(Config{}, transport.Options{}, nil).WithOpener(func(string, int) (Port, error) { return nil, boom })
	err := b.Connect(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), DefaultPort)
	assert.False(t, b.Connected())
}

func TestConnectClosesPortWhenAttachFails(t *testing.T) {
	first, second := newFakePort(), newFakePort()
	var b *Backend
	b = New(Config{}, transport.Options{}, nil).WithOpener(func(string, int) (Port, error) {
		// another Connect attaches while this one is still opening
		require.NoError(t, b.Attach(first))
		return second, nil
	})
	t.Cleanup(func() { _ = b.Disconnect() })

	err := b.Connect(context.Background())
	require.ErrorIs(t, err, transport.ErrConnected)
	select {
	case <-second.closed:
	case <-time.After(time.Second):
		t.Fatal("port left open after failed attach")
	}
	select {
	case <-first.closed:
		t.Fatal("attached port was closed")
	default:
	}
}
