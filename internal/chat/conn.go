// Package chat provides the core chat domain logic shared by all transports:
// the framed connection reactor, rooms, users, and the room registry.
package chat

import "time"

// Transport abstracts a raw bidirectional byte stream for both TCP and
// WebSocket. This interface isolates transport details from the framing
// and chat logic.
type Transport interface {
	// Read reads the next chunk of available bytes into buf.
	// Returns io.EOF when the peer has closed the connection.
	Read(buf []byte) (int, error)

	// Write sends data to the peer in full.
	Write(data []byte) (int, error)

	// Close closes the underlying connection.
	Close() error

	// RemoteAddr returns the remote address used as the peer key.
	RemoteAddr() string

	// SetReadDeadline bounds the next Read.
	SetReadDeadline(t time.Time) error
}

// Conn is the view of a connection exposed to handlers and rooms: enqueue
// outbound records, stop the session, identify the peer.
type Conn interface {
	// Enqueue appends a single-field record to the outbound queue.
	Enqueue(record string) error

	// EnqueueFields joins several fields into one record and appends it to
	// the outbound queue.
	EnqueueFields(fields ...string) error

	// Stop ends the session. It reports an error if the connection has
	// already stopped.
	Stop() error

	// RemoteAddr returns the peer address.
	RemoteAddr() string
}

// Handler interprets one decoded record. The first field is the command,
// the rest are arguments. Handlers run on the connection's read goroutine
// and may call Enqueue/Stop on the supplied Conn, or on any other Conn they
// hold a reference to (room broadcast).
type Handler func(fields []string, conn Conn)
