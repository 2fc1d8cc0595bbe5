package main

import (
	"bytes"
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thingset/pkg/client"
	"thingset/pkg/protocol"
	"thingset/pkg/transport"
)

func TestParseValue(t *testing.T) {
	v, err := parseValue("[1, 2.5]")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), 2.5}, v)

	v, err = parseValue(`{"a":true}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": true}, v)

	v, err = parseValue("77.8")
	require.NoError(t, err)
	assert.Equal(t, "77.8", v)

	_, err = parseValue("[1,")
	assert.Error(t, err)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"0x300", "Measurements/Battery_V"})
	require.NoError(t, err)
	assert.Equal(t, []protocol.ID{protocol.Num(0x300), protocol.Path("Measurements/Battery_V")}, ids)

	_, err = parseIDs([]string{" "})
	assert.ErrorIs(t, err, protocol.ErrInvalidID)
}

func TestRender(t *testing.T) {
	rsp := &client.Response{
		Backend: transport.KindSocket,
		Status:  protocol.StatusContent,
		Values: []client.Value{
			{ID: protocol.Num(0x300), Value: map[any]any{uint64(1): 2.0}, Path: "Measurements/Battery_V"},
			{Value: 3, Path: "Cell1_V"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, printResponse(&buf, rsp))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "socket", got["backend"])
	assert.Equal(t, "0x85 Content", got["status"])
	values := got["values"].([]any)
	require.Len(t, values, 2)
	assert.Equal(t, map[string]any{"id": "0x300", "path": "Measurements/Battery_V", "value": map[string]any{"1": 2.0}}, values[0])
	assert.Equal(t, map[string]any{"path": "Cell1_V", "value": 3.0}, values[1])
}

// socketNode accepts one connection, answers every request with reply and
// passes a copy of each request to the returned channel.
func socketNode(t *testing.T, reply []byte) (string, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	reqs := make(chan []byte, 8)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			select {
			case reqs <- append([]byte(nil), buf[:n]...):
			default:
			}
			_, _ = conn.Write(reply)
		}
	}()
	return ln.Addr().String(), reqs
}

func runCLI(t *testing.T, args ...string) (stdout, stderr *bytes.Buffer, err error) {
	t.Helper()
	t.Setenv("THINGSET_CONFIG", "")
	t.Setenv("THINGSET_LOG_LEVEL", "error")
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return stdout, stderr, err
}

func TestGetOverSocket(t *testing.T) {
	addr, reqs := socketNode(t, []byte{0x85, 0xf6, 0x18, 0x2a})

	out, _, err := runCLI(t, "get", "0x300", "--backend", "socket", "--address", addr, "--no-paths")
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(protocol.OpGet), 0x19, 0x03, 0x00}, <-reqs)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "0x85 Content", got["status"])
	assert.Equal(t, []any{map[string]any{"id": "0x300", "value": 42.0}}, got["values"])
}

func TestUpdateGroupOverSocket(t *testing.T) {
	addr, reqs := socketNode(t, []byte{0x84})

	out, _, err := runCLI(t, "update", "0x300", `{"a":1}`, "--backend", "socket", "--address", addr, "--no-paths")
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(protocol.OpUpdate), 0x19, 0x03, 0x00, 0xa1, 0x61, 'a', 0x01}, <-reqs)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "0x84 Changed", got["status"])
}

func TestMetricsWrittenToStderr(t *testing.T) {
	addr, _ := socketNode(t, []byte{0x85, 0xf6, 0x18, 0x2a})
	t.Setenv("THINGSET_METRICS_ENABLE", "true")

	_, errOut, err := runCLI(t, "get", "0x300", "--backend", "socket", "--address", addr, "--no-paths")
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), `thingset_client_requests_total{backend="socket",op="get",status_class="success"}`)
	assert.NotContains(t, errOut.String(), "go_goroutines")
}
