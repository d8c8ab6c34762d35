package tcp

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"github.com/dward2nd/cscmu-chat-mini-project/internal/chat"
)

// killSentinel is the two-character console command that shuts the server
// down.
const killSentinel = "qt"

// Server accepts TCP connections and wraps each one in a framed
// connection bound to the chat handler. The accept loop never decodes
// protocol data itself.
type Server struct {
	address string
	handler chat.Handler

	// Quiet suppresses connection-status logging. Set before Start.
	Quiet bool

	// Console, when set, is watched for the kill sentinel to trigger a
	// graceful Stop. The command entry point passes os.Stdin here.
	Console io.Reader

	// OnShutdown, when set, runs at the start of Stop, before the
	// listening socket closes. The chat server uses it to notify
	// authorized users.
	OnShutdown func()

	mu       sync.Mutex
	listener net.Listener
	running  bool
	conns    map[*chat.Connection]bool
}

// New creates a Server for the given listen address. The handler must be
// set here, before Start.
func New(address string, handler chat.Handler) *Server {
	return &Server{
		address: address,
		handler: handler,
		conns:   make(map[*chat.Connection]bool),
	}
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

// ConnCount returns the number of live accepted connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Start binds the listen address and accepts connections until Stop. It
// fails if the handler is missing or the server already runs.
func (s *Server) Start() error {
	if s.handler == nil {
		return errors.New("tcp: no record handler is set for the server")
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("tcp: the server is already running")
	}
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	if !s.Quiet {
		log.Printf("The server started listening on %s", listener.Addr().String())
	}
	if s.Console != nil {
		go s.watchConsole()
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if !s.Running() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("Failed to accept connection: %v", err)
			continue
		}
		if !s.Running() {
			// The throwaway connection Stop opened to unblock accept.
			conn.Close()
			return nil
		}

		if !s.Quiet {
			log.Printf("Client from %s requested to connect.", conn.RemoteAddr())
		}
		s.serve(conn)
	}
}

// serve wraps an accepted socket in a framed connection that greets the
// peer first, and supervises it on its own goroutine.
func (s *Server) serve(conn net.Conn) {
	c := chat.NewConnection(NewConn(conn), s.handler, true)
	c.Quiet = s.Quiet

	s.mu.Lock()
	s.conns[c] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.conns, c)
			s.mu.Unlock()
		}()

		if err := c.Start(); err != nil {
			log.Printf("Failed to start connection %s: %v", c.ID(), err)
			return
		}
		<-c.Done()
	}()
}

// Stop notifies via OnShutdown, unblocks the accept call with one
// throwaway connection to itself, and closes the listening socket. It
// fails if the server is not running.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return errors.New("tcp: the server is not running")
	}
	s.running = false
	listener := s.listener
	s.mu.Unlock()

	if s.OnShutdown != nil {
		s.OnShutdown()
	}

	if conn, err := net.Dial("tcp", listener.Addr().String()); err == nil {
		conn.Close()
	}
	if err := listener.Close(); err != nil {
		return fmt.Errorf("failed to close listener: %w", err)
	}

	if !s.Quiet {
		log.Printf("The server stopped listening on %s", listener.Addr().String())
	}
	return nil
}

// watchConsole reads two characters at a time from the console until the
// kill sentinel arrives, then stops the server.
func (s *Server) watchConsole() {
	buf := make([]byte, len(killSentinel))
	for {
		if _, err := io.ReadFull(s.Console, buf); err != nil {
			return
		}
		if string(buf) == killSentinel {
			if err := s.Stop(); err != nil {
				log.Printf("Console shutdown failed: %v", err)
			}
			return
		}
	}
}
