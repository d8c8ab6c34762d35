// Package ws provides the WebSocket transport implementation for the chat
// service using gobwas/ws. Records travel as text frames carrying the same
// line-delimited protocol as the TCP transport.
package ws

import (
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Conn adapts an upgraded WebSocket net.Conn to chat.Transport. Each text
// frame is one read chunk; oversized frames are buffered across reads.
type Conn struct {
	conn          net.Conn
	readBuffer    []byte
	readBufferPos int
	mu            sync.Mutex
}

// NewConn wraps a net.Conn that already completed the WebSocket
// handshake.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn}
}

// Read implements chat.Transport.
func (c *Conn) Read(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readBufferPos < len(c.readBuffer) {
		n := copy(buf, c.readBuffer[c.readBufferPos:])
		c.readBufferPos += n
		if c.readBufferPos >= len(c.readBuffer) {
			c.readBuffer = nil
			c.readBufferPos = 0
		}
		return n, nil
	}

	data, err := wsutil.ReadClientText(c.conn)
	if err != nil {
		return 0, err
	}

	n := copy(buf, data)
	if n < len(data) {
		c.readBuffer = data[n:]
		c.readBufferPos = 0
	}
	return n, nil
}

// Write implements chat.Transport.
func (c *Conn) Write(data []byte) (int, error) {
	if err := wsutil.WriteServerText(c.conn, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Close implements chat.Transport. A close frame is sent best-effort
// before the socket goes down.
func (c *Conn) Close() error {
	_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, nil)
	return c.conn.Close()
}

// RemoteAddr implements chat.Transport.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// SetReadDeadline implements chat.Transport as a no-op. A frame reader
// cannot resume a half-consumed frame, so letting a deadline expire
// mid-frame would desync the stream; Read blocks until a whole frame or
// the close handshake arrives instead.
func (c *Conn) SetReadDeadline(time.Time) error {
	return nil
}
