package client

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thingset/pkg/protocol"
	"thingset/pkg/protocol/codec"
	"thingset/pkg/transport"
	"thingset/pkg/transport/mem"
)

// fakeNode answers binary requests from an object table.
type fakeNode struct {
	cbor codec.SeqCodec

	mu      sync.Mutex
	objects map[uint64]any
	paths   map[uint64]string
	// children lists what a fetch with a null id list returns for a parent
	children map[uint64]map[any]any
	execs    []any
	requests []byte // opcode of every request, in order
	// silent makes the node swallow requests with this opcode
	silent byte
	// canned replies override the object table per opcode
	canned map[byte][]byte
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		cbor:     codec.MustCBOR(),
		objects:  map[uint64]any{},
		paths:    map[uint64]string{},
		children: map[uint64]map[any]any{},
		canned:   map[byte][]byte{},
	}
}

func (n *fakeNode) reply(status protocol.Status, payload ...any) []byte {
	out := []byte{byte(status)}
	if len(payload) == 0 {
		return out
	}
	out = append(out, 0xf6)
	for _, p := range payload {
		b, err := n.cbor.Marshal(p)
		if err != nil {
			panic(err)
		}
		out = append(out, b...)
	}
	return out
}

func (n *fakeNode) handle(req []byte) [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	op := req[0]
	n.requests = append(n.requests, op)
	if n.silent != 0 && op == n.silent {
		return nil
	}
	if r, ok := n.canned[op]; ok {
		return [][]byte{r}
	}

	var items []any
	rest := req[1:]
	for len(rest) > 0 {
		var it any
		var err error
		if rest, err = n.cbor.UnmarshalFirst(rest, &it); err != nil {
			return [][]byte{n.reply(protocol.StatusBadRequest)}
		}
		items = append(items, it)
	}

	switch protocol.Opcode(op) {
	case protocol.OpGet:
		id := n.idOf(items[0])
		v, ok := n.objects[id]
		if !ok {
			return [][]byte{n.reply(protocol.StatusNotFound)}
		}
		return [][]byte{n.reply(protocol.StatusContent, v)}
	case protocol.OpFetch:
		parent, _ := items[0].(uint64)
		if items[1] == nil {
			return [][]byte{n.reply(protocol.StatusContent, n.children[parent])}
		}
		ids, _ := items[1].([]any)
		out := make([]any, 0, len(ids))
		for _, raw := range ids {
			id, _ := raw.(uint64)
			if parent == uint64(protocol.IDPaths) {
				p, ok := n.paths[id]
				if !ok {
					return [][]byte{n.reply(protocol.StatusNotFound)}
				}
				out = append(out, p)
				continue
			}
			out = append(out, n.objects[id])
		}
		return [][]byte{n.reply(protocol.StatusContent, out)}
	case protocol.OpUpdate:
		m, _ := items[1].(map[any]any)
		for k, v := range m {
			id, _ := k.(uint64)
			if list, ok := v.([]any); ok && len(list) == 1 {
				v = list[0]
			}
			n.objects[id] = v
		}
		return [][]byte{n.reply(protocol.StatusChanged)}
	case protocol.OpExec:
		n.execs = append(n.execs, items[1])
		return [][]byte{n.reply(protocol.StatusChanged)}
	}
	return [][]byte{n.reply(protocol.StatusMethodNotAllowed)}
}

// idOf maps a wire ID, numeric or path, to its number. Callers hold n.mu.
func (n *fakeNode) idOf(w any) uint64 {
	switch x := w.(type) {
	case uint64:
		return x
	case string:
		for id, p := range n.paths {
			if p == x {
				return id
			}
		}
	}
	return 0xFFFFFFFF
}

func (n *fakeNode) opcodes() []byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]byte(nil), n.requests...)
}

// serve connects a binary mem backend to node and returns a client on it.
func serve(t *testing.T, node *fakeNode, opts ...Option) (*Client, *mem.Backend) {
	t.Helper()
	b := mem.NewBinary(transport.Options{}, zap.NewNop())
	c, err := New(context.Background(), b, protocol.EncodingBinary, opts...)
	require.NoError(t, err)
	go func() { _ = b.Serve(node.handle) }()
	t.Cleanup(func() { _ = c.Disconnect() })
	return c, b
}

// serveText answers text commands from a table of request line -> reply,
// echoing each command and printing a prompt like the node's shell does.
func serveText(t *testing.T, table map[string]string, opts ...Option) *Client {
	t.Helper()
	b := mem.NewText(transport.Options{}, zap.NewNop())
	c, err := New(context.Background(), b, protocol.EncodingText, opts...)
	require.NoError(t, err)
	go func() {
		_ = b.Serve(func(req []byte) [][]byte {
			line := string(req)
			out := [][]byte{[]byte(line + "\r\n")}
			if rsp, ok := table[line]; ok {
				out = append(out, []byte(rsp+"\r\n"))
			}
			return append(out, []byte("\x1b[1;32muart:~$ \x1b[m"))
		})
	}()
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}
