package mem

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thingset/pkg/transport"
)

func TestBinaryServe(t *testing.T) {
	b := NewBinary(transport.Options{}, zap.NewNop())
	require.NoError(t, b.Connect(context.Background()))
	served := make(chan error, 1)
	go func() {
		served <- b.Serve(func(req []byte) [][]byte {
			return [][]byte{append([]byte{0x85, 0xf6}, req[1:]...)}
		})
	}()

	require.NoError(t, b.Send([]byte{0x01, 0x18, 0x40}))
	msg, ok := b.Receive(time.Second)
	require.True(t, ok)
	assert.Equal(t, []byte{0x85, 0xf6, 0x18, 0x40}, msg)

	require.NoError(t, b.Disconnect())
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Disconnect")
	}
}

func TestTextServeSeesCommand(t *testing.T) {
	b := NewText(transport.Options{}, zap.NewNop())
	require.NoError(t, b.Connect(context.Background()))
	defer b.Disconnect()
	go b.Serve(func(req []byte) [][]byte {
		if !bytes.HasPrefix(req, []byte("thingset ?")) {
			return [][]byte{[]byte(":A0 Bad Request.\n")}
		}
		// echo first, as a real shell does
		return [][]byte{append(req, '\r', '\n'), []byte(":85 Content. 3\r\n")}
	})

	require.NoError(t, b.Send([]byte("thingset ?Device/nBatteries\n")))
	msg, ok := b.Receive(time.Second)
	require.True(t, ok)
	assert.Equal(t, ":85 Content. 3", string(msg))
}

func TestConnectLifecycle(t *testing.T) {
	b := NewBinary(transport.Options{}, nil)
	assert.Equal(t, transport.KindMem, b.Kind())
	assert.Nil(t, b.Node())
	assert.ErrorIs(t, b.Serve(nil), transport.ErrNotConnected)

	require.NoError(t, b.Connect(context.Background()))
	node := b.Node()
	require.NoError(t, b.Connect(context.Background()))
	assert.Same(t, node, b.Node())

	require.NoError(t, b.Disconnect())
	require.NoError(t, b.Disconnect())
	assert.Nil(t, b.Node())
	assert.ErrorIs(t, b.Send([]byte{1}), transport.ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Connect(ctx), context.Canceled)
}
