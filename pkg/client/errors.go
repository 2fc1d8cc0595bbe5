package client

import (
	"errors"

	"thingset/pkg/protocol"
)

var (
	// ErrDisconnected is returned by every operation after Disconnect.
	// It also matches transport.ErrNotConnected.
	ErrDisconnected = errors.New("client: disconnected")

	ErrUnknownBackend = errors.New("client: unknown backend")

	errNoResponse = errors.New("no response")
	errNoPath     = errors.New("response carries no path")
)

type statusError struct{ status protocol.Status }

func (e *statusError) Error() string { return "node replied " + e.status.String() }
