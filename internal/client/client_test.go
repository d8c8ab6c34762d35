package client_test

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dward2nd/cscmu-chat-mini-project/internal/chat"
	"github.com/dward2nd/cscmu-chat-mini-project/internal/client"
	"github.com/dward2nd/cscmu-chat-mini-project/pkg/protocol"
)

// fakeConn records enqueued fields for assertions. It implements
// chat.Conn.
type fakeConn struct {
	mu      sync.Mutex
	records [][]string
	stopped bool
}

func (f *fakeConn) Enqueue(record string) error {
	return f.EnqueueFields(record)
}

func (f *fakeConn) EnqueueFields(fields ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record := make([]string, len(fields))
	copy(record, fields)
	f.records = append(f.records, record)
	return nil
}

func (f *fakeConn) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return errors.New("already stopped")
	}
	f.stopped = true
	return nil
}

func (f *fakeConn) RemoteAddr() string { return "127.0.0.1:9" }

func (f *fakeConn) Records() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([][]string, len(f.records))
	copy(records, f.records)
	return records
}

func (f *fakeConn) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// fakeServer accepts one connection and hands it to serve.
func fakeServer(t *testing.T, serve func(conn net.Conn)) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}()
	return listener.Addr().String()
}

func TestClient_RefusedOnGreetingMismatch(t *testing.T) {
	addr := fakeServer(t, func(conn net.Conn) {
		conn.Write([]byte("500: Nope\r\n"))
	})

	c := client.New(addr, func(fields []string, conn chat.Conn) {})
	c.Quiet = true

	if err := c.Run(); !errors.Is(err, client.ErrRefused) {
		t.Errorf("Run() error = %v, want ErrRefused", err)
	}
}

func TestClient_StopWithoutSession(t *testing.T) {
	c := client.New("127.0.0.1:0", func(fields []string, conn chat.Conn) {})

	if err := c.Stop(); err == nil {
		t.Error("Stop() without a session succeeded, want error")
	}
}

func TestClient_SessionLifecycle(t *testing.T) {
	served := make(chan struct{})
	addr := fakeServer(t, func(conn net.Conn) {
		conn.Write(protocol.Encode(protocol.Greeting))

		// The client echoes the greeting back before anything else.
		buf := make([]byte, 256)
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := conn.Read(buf)
		if err != nil || string(buf[:n]) != protocol.Greeting+"\r\n" {
			t.Errorf("client sent %q, %v; want echoed greeting", string(buf[:n]), err)
			return
		}

		conn.Write(protocol.Encode(protocol.CmdAuth))
		close(served)
	})

	received := make(chan []string, 1)
	c := client.New(addr, func(fields []string, conn chat.Conn) {
		received <- fields
		conn.Stop()
	})
	c.Quiet = true

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run() }()

	select {
	case fields := <-received:
		if len(fields) != 1 || fields[0] != protocol.CmdAuth {
			t.Errorf("handler got %v, want [auth]", fields)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after the session ended")
	}
	<-served
}

func TestClient_DialFailure(t *testing.T) {
	// A listener closed before the dial guarantees a refused port.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	c := client.New(addr, func(fields []string, conn chat.Conn) {})

	if err := c.Run(); err == nil {
		t.Error("Run() against a closed port succeeded, want error")
	}
}
