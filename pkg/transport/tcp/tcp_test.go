package tcp

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thingset/pkg/transport"
)

func listen(t *testing.T) (net.Listener, Config) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return ln, Config{Address: host, Port: p, DialTimeout: time.Second}
}

func TestDefaults(t *testing.T) {
	b := New(Config{}, transport.Options{}, nil)
	assert.Equal(t, "192.0.2.1:9001", b.Config().Addr())
	assert.Equal(t, DefaultDialTimeout, b.Config().DialTimeout)
	assert.Equal(t, transport.KindSocket, b.Kind())
}

func TestRequestResponse(t *testing.T) {
	ln, cfg := listen(t)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 64)
		n, err := c.Read(buf)
		if err != nil || n == 0 || buf[0] != 0x01 {
			return
		}
		_, _ = c.Write([]byte{0x85, 0xf6, 0x18, 0x2a})
		// hold the conn open until the client leaves
		_, _ = c.Read(buf)
	}()

	b := New(cfg, transport.Options{}, zap.NewNop())
	require.NoError(t, b.Connect(context.Background()))
	require.NoError(t, b.Connect(context.Background()))

	require.NoError(t, b.Send([]byte{0x01, 0x19, 0x03, 0x00}))
	msg, ok := b.Receive(2 * time.Second)
	require.True(t, ok)
	assert.Equal(t, []byte{0x85, 0xf6, 0x18, 0x2a}, msg)

	require.NoError(t, b.Disconnect())
	require.NoError(t, b.Disconnect())
	assert.ErrorIs(t, b.Send([]byte{0x01}), transport.ErrNotConnected)
}

func TestDialFailure(t *testing.T) {
	ln, cfg := listen(t)
	require.NoError(t, ln.Close())
	b := New(cfg, transport.Options{}, nil)
	err := b.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), cfg.Addr())
	assert.False(t, b.Connected())
}
