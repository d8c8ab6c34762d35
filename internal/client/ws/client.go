// Package ws provides the WebSocket dialer for the chat client, adapting
// nhooyr.io/websocket to the chat transport interface.
package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/dward2nd/cscmu-chat-mini-project/internal/chat"
)

// Conn adapts a nhooyr websocket.Conn to chat.Transport. Each text frame
// is one read chunk; oversized frames are buffered across reads.
type Conn struct {
	conn       *websocket.Conn
	remoteAddr string

	mu            sync.Mutex
	readBuffer    []byte
	readBufferPos int
}

// Dial opens a WebSocket connection to address (host:port) and returns it
// as a chat.Transport.
func Dial(address string) (chat.Transport, error) {
	conn, _, err := websocket.Dial(context.Background(), "ws://"+address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to reach the server: %w", err)
	}
	return &Conn{conn: conn, remoteAddr: address}, nil
}

// Read implements chat.Transport. It blocks until a frame arrives or the
// connection closes.
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

	_, data, err := c.conn.Read(context.Background())
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
	if err := c.conn.Write(context.Background(), websocket.MessageText, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Close implements chat.Transport.
func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// RemoteAddr implements chat.Transport.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// SetReadDeadline implements chat.Transport. It is a no-op: the library
// tears the connection down when a read context expires, so a per-read
// deadline cannot serve as a liveness re-poll here. Read unblocks when
// the connection closes instead.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return nil
}
