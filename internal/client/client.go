// Package client implements the connection initiator and the interactive
// terminal session of the chat client.
package client

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/dward2nd/cscmu-chat-mini-project/internal/chat"
	"github.com/dward2nd/cscmu-chat-mini-project/internal/transport/tcp"
	"github.com/dward2nd/cscmu-chat-mini-project/pkg/protocol"
)

// ErrRefused reports a greeting mismatch during the handshake.
var ErrRefused = errors.New("client: the server refused the connection")

// Dialer opens a transport to the given address.
type Dialer func(address string) (chat.Transport, error)

// DialTCP is the default Dialer.
func DialTCP(address string) (chat.Transport, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to reach the server: %w", err)
	}
	return tcp.NewConn(conn), nil
}

// Client opens one outbound connection, validates the server's greeting,
// and runs the bound handler until the session ends.
type Client struct {
	address string
	handler chat.Handler
	dial    Dialer

	// Quiet suppresses connection-status logging. Set before Run.
	Quiet bool

	mu   sync.Mutex
	conn *chat.Connection
}

// New creates a TCP Client for the given server address.
func New(address string, handler chat.Handler) *Client {
	return &Client{address: address, handler: handler, dial: DialTCP}
}

// NewWithDialer creates a Client that opens its transport through dial
// (the WebSocket client uses this).
func NewWithDialer(address string, handler chat.Handler, dial Dialer) *Client {
	return &Client{address: address, handler: handler, dial: dial}
}

// Run connects, reads exactly one greeting record, and on a match starts
// the framed connection, echoing the greeting back first. It blocks the
// caller until the connection's completion signal fires and returns the
// connection's failure, if any.
func (c *Client) Run() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return errors.New("client: close the connection before starting a new session")
	}
	c.mu.Unlock()

	tr, err := c.dial(c.address)
	if err != nil {
		return err
	}

	buf := make([]byte, 2048)
	n, err := tr.Read(buf)
	if err != nil {
		tr.Close()
		return fmt.Errorf("%w: %v", ErrRefused, err)
	}
	fields := protocol.Decode(buf[:n])
	if len(fields) == 0 || fields[0] != protocol.Greeting {
		tr.Close()
		return ErrRefused
	}

	conn := chat.NewConnection(tr, c.handler, true)
	conn.Quiet = c.Quiet

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := conn.Start(); err != nil {
		return err
	}
	return conn.Wait()
}

// Stop ends the running session. It fails if no session is running.
func (c *Client) Stop() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("client: no session is currently running")
	}
	return conn.Stop()
}
