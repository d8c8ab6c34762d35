package ws

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/gobwas/ws"

	"github.com/dward2nd/cscmu-chat-mini-project/internal/chat"
)

// Server accepts WebSocket connections and runs the same framed protocol
// over them that the TCP server speaks, sharing one chat handler.
type Server struct {
	address string
	handler chat.Handler

	// Quiet suppresses connection-status logging. Set before Start.
	Quiet bool

	mu       sync.Mutex
	listener net.Listener
	running  bool
}

// New creates a WebSocket Server for the given listen address.
func New(address string, handler chat.Handler) *Server {
	return &Server{address: address, handler: handler}
}

// Running reports whether the server is accepting connections.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Start binds the listen address and upgrades each accepted socket with
// the WebSocket handshake before handing it to a framed connection.
func (s *Server) Start() error {
	if s.handler == nil {
		return errors.New("ws: no record handler is set for the server")
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("ws: the server is already running")
	}
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to start WebSocket server: %w", err)
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	if !s.Quiet {
		log.Printf("The WebSocket server started listening on %s", listener.Addr().String())
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if !s.Running() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("Failed to accept WebSocket connection: %v", err)
			continue
		}

		go s.serve(conn)
	}
}

// Stop closes the listening socket. It fails if the server is not
// running.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return errors.New("ws: the server is not running")
	}
	s.running = false
	listener := s.listener
	s.mu.Unlock()

	if err := listener.Close(); err != nil {
		return fmt.Errorf("failed to close WebSocket listener: %w", err)
	}
	return nil
}

func (s *Server) serve(conn net.Conn) {
	if _, err := ws.Upgrade(conn); err != nil {
		log.Printf("WebSocket handshake with %s failed: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}

	if !s.Quiet {
		log.Printf("WebSocket client from %s requested to connect.", conn.RemoteAddr())
	}

	c := chat.NewConnection(NewConn(conn), s.handler, true)
	c.Quiet = s.Quiet
	if err := c.Start(); err != nil {
		log.Printf("Failed to start WebSocket connection %s: %v", c.ID(), err)
	}
}
