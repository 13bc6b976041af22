package gateway

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"
)

// tcpFrontConn speaks a length-prefixed framing over a plain TCP socket to
// a CTP front address of the form tcp://host:port. Each frame is a
// 4-byte big-endian length followed by a msgpack-encoded payload, the
// simplest framing that lets the rest of the gateway stay wire-format
// agnostic (§4.D).
type tcpFrontConn struct {
	conn net.Conn
}

// dialFront parses addr (tcp://host:port, per §6's front_addr pattern)
// and opens a TCP connection within the given deadline.
func dialFront(ctx context.Context, addr string) (frontConn, error) {
	u, err := url.Parse(addr)
	if err != nil || u.Scheme != "tcp" || u.Host == "" {
		return nil, fmt.Errorf("front address %q is not of the form tcp://host:port", addr)
	}

	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &tcpFrontConn{conn: c}, nil
}

func (c *tcpFrontConn) close() error {
	return c.conn.Close()
}

func (c *tcpFrontConn) readFrame(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
	} else {
		_ = c.conn.SetReadDeadline(time.Now().Add(frontReadWait))
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(c.conn, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}

func (c *tcpFrontConn) writeFrame(ctx context.Context, data []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Now().Add(frontWriteWait))
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := c.conn.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}
