// Package tcp provides the TCP transport implementation for the chat
// service: a net.Conn adapter and the accepting server.
package tcp

import (
	"net"
	"time"
)

// Conn adapts net.Conn to chat.Transport.
type Conn struct {
	conn net.Conn
}

// NewConn wraps a net.Conn.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn}
}

// Read implements chat.Transport.
func (c *Conn) Read(buf []byte) (int, error) {
	return c.conn.Read(buf)
}

// Write implements chat.Transport.
func (c *Conn) Write(data []byte) (int, error) {
	return c.conn.Write(data)
}

// Close implements chat.Transport.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Transport.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// SetReadDeadline implements chat.Transport.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}
