package gateway

import (
	"context"
	"time"
)

// frontConn is the transport boundary between the gateway and a CTP
// front-end server: dial once, then exchange length-prefixed msgpack
// frames (§4.D). Swapping the implementation (TCP, simulated) never
// touches the connection manager or dispatch loop above it.
type frontConn interface {
	// close tears down the underlying connection.
	close() error
	// readFrame blocks until one frame is available.
	readFrame(ctx context.Context) (data []byte, err error)
	// writeFrame writes one frame.
	writeFrame(ctx context.Context, data []byte) error
}

var (
	frontWriteWait = 5 * time.Second
	frontReadWait  = 30 * time.Second // CTP heartbeats are slower than a websocket ping cadence
)
