package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dward2nd/cscmu-chat-mini-project/pkg/protocol"
)

// LivenessInterval bounds each read so an idle connection re-polls the
// socket instead of blocking forever. A deadline expiry is not treated as
// a disconnect.
const LivenessInterval = 30 * time.Second

// outgoingBuffer is the capacity of the per-connection outbound queue.
const outgoingBuffer = 64

// readBufferSize is the maximum chunk read from the transport at once.
const readBufferSize = 2048

// State is the lifecycle state of a Connection. Transitions are
// one-directional; a connection is never restarted.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateStopped
	StateErrored
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	case StateErrored:
		return "ERRORED"
	default:
		return "UNKNOWN"
	}
}

// Connection frames a Transport into line-delimited records: it decodes
// each read chunk into fields and dispatches them to the bound handler,
// and drains a FIFO outbound queue through a single writer goroutine so
// records are flushed strictly in enqueue order, one at a time.
type Connection struct {
	id           string
	tr           Transport
	handler      Handler
	sendGreeting bool

	// Quiet suppresses per-record connection logging. Set before Start.
	Quiet bool

	// Liveness bounds each read before the loop re-polls the socket.
	// Defaults to LivenessInterval. Set before Start.
	Liveness time.Duration

	outgoing chan []byte
	done     chan struct{}
	teardown sync.Once

	mu    sync.Mutex
	state State
	err   error
}

// NewConnection wraps a Transport with the given handler. When
// sendGreeting is set the greeting record is written before anything else
// (the accept side does this; the initiating side echoes it back).
func NewConnection(tr Transport, handler Handler, sendGreeting bool) *Connection {
	return &Connection{
		id:           uuid.NewString(),
		tr:           tr,
		handler:      handler,
		sendGreeting: sendGreeting,
		Liveness:     LivenessInterval,
		outgoing:     make(chan []byte, outgoingBuffer),
		done:         make(chan struct{}),
	}
}

// ID returns the connection's unique id, used in log lines.
func (c *Connection) ID() string {
	return c.id
}

// RemoteAddr implements Conn.
func (c *Connection) RemoteAddr() string {
	return c.tr.RemoteAddr()
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure that moved the connection to StateErrored, or
// nil if it stopped cleanly.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done returns a channel closed once the connection has fully stopped,
// cleanly or not. This is the completion signal the opening side waits on.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the connection has stopped and returns its failure,
// if any.
func (c *Connection) Wait() error {
	<-c.done
	return c.Err()
}

// Start sends the optional greeting and launches the read and write
// loops. It fails if no handler is bound or the connection already ran.
func (c *Connection) Start() error {
	if c.handler == nil {
		return errors.New("chat: no record handler is set for the connection")
	}

	c.mu.Lock()
	if c.state != StateCreated {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("chat: connection already started (state %s)", state)
	}
	c.state = StateRunning
	c.mu.Unlock()

	if c.sendGreeting {
		if _, err := c.tr.Write(protocol.Encode(protocol.Greeting)); err != nil {
			c.fail(fmt.Errorf("failed to send greeting: %w", err))
			return err
		}
	}

	go c.readLoop()
	go c.writeLoop()
	return nil
}

// Enqueue implements Conn.
func (c *Connection) Enqueue(record string) error {
	return c.EnqueueFields(record)
}

// EnqueueFields implements Conn. Several fields become one record joined
// by the protocol delimiter. Safe to call from the connection's own
// handler or from another connection's goroutine: the send never blocks,
// so a full queue behind a peer that stopped reading drops the record
// instead of stalling the caller.
func (c *Connection) EnqueueFields(fields ...string) error {
	select {
	case <-c.done:
		return fmt.Errorf("chat: connection to %s is no longer running", c.RemoteAddr())
	default:
	}

	select {
	case c.outgoing <- protocol.Encode(fields...):
		return nil
	default:
		if !c.Quiet {
			log.Printf("Dropping record for %s: outbound queue is full", c.RemoteAddr())
		}
		return fmt.Errorf("chat: outbound queue for %s is full", c.RemoteAddr())
	}
}

// Stop sends the closing sentinel best-effort, closes the transport, and
// moves the connection to StateStopped. It reports an error if the
// connection has already stopped.
func (c *Connection) Stop() error {
	c.mu.Lock()
	if c.state == StateStopped || c.state == StateErrored {
		c.mu.Unlock()
		return fmt.Errorf("chat: connection to %s has already stopped", c.RemoteAddr())
	}
	c.state = StateStopped
	c.mu.Unlock()

	c.teardown.Do(func() {
		_, _ = c.tr.Write(protocol.Encode(protocol.Closing))
		_ = c.tr.Close()
		close(c.done)
	})

	if !c.Quiet {
		log.Printf("Connection %s to %s stopped", c.id, c.RemoteAddr())
	}
	return nil
}

// fail records err, moves the connection to StateErrored, and tears it
// down without the closing handshake. No retry, no reconnect.
func (c *Connection) fail(err error) {
	c.mu.Lock()
	if c.state == StateStopped || c.state == StateErrored {
		c.mu.Unlock()
		return
	}
	c.state = StateErrored
	c.err = err
	c.mu.Unlock()

	c.teardown.Do(func() {
		_ = c.tr.Close()
		close(c.done)
	})

	if !c.Quiet {
		log.Printf("Connection %s to %s unexpectedly stopped: %v", c.id, c.RemoteAddr(), err)
	}
}

func (c *Connection) readLoop() {
	buf := make([]byte, readBufferSize)
	for {
		_ = c.tr.SetReadDeadline(time.Now().Add(c.Liveness))
		n, err := c.tr.Read(buf)
		if c.State() != StateRunning {
			return
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				// Peer went away; treat like the closing sentinel.
				_ = c.Stop()
				return
			}
			c.fail(fmt.Errorf("failed to read from %s: %w", c.RemoteAddr(), err))
			return
		}

		data := buf[:n]
		if n == 0 || protocol.IsClosing(data) {
			_ = c.Stop()
			return
		}

		if !c.Quiet {
			log.Printf("Received from %s: %q", c.RemoteAddr(), string(data))
		}
		c.handler(protocol.Decode(data), c)
	}
}

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.outgoing:
			if _, err := c.tr.Write(data); err != nil {
				c.fail(fmt.Errorf("failed to write to %s: %w", c.RemoteAddr(), err))
				return
			}
			if !c.Quiet {
				log.Printf("Sent to %s: %q", c.RemoteAddr(), string(data))
			}
		case <-c.done:
			return
		}
	}
}

// isTimeout reports whether err is a read-deadline expiry, which only
// re-polls liveness.
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
}
