package ws_test

import (
	"testing"
	"time"

	"github.com/dward2nd/cscmu-chat-mini-project/internal/chat"
	clientws "github.com/dward2nd/cscmu-chat-mini-project/internal/client/ws"
	"github.com/dward2nd/cscmu-chat-mini-project/internal/transport/ws"
	"github.com/dward2nd/cscmu-chat-mini-project/pkg/protocol"
)

func startServer(t *testing.T, handler chat.Handler) *ws.Server {
	t.Helper()
	s := ws.New("127.0.0.1:0", handler)
	s.Quiet = true
	go s.Start()

	for i := 0; i < 100; i++ {
		if s.Addr() != "" {
			t.Cleanup(func() {
				if s.Running() {
					s.Stop()
				}
			})
			return s
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("WebSocket server did not start listening")
	return nil
}

// readRecord reads one frame from tr and decodes it.
func readRecord(t *testing.T, tr chat.Transport) []string {
	t.Helper()
	buf := make([]byte, 2048)
	n, err := tr.Read(buf)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	return protocol.Decode(buf[:n])
}

func TestServer_StartWithoutHandler(t *testing.T) {
	s := ws.New("127.0.0.1:0", nil)

	if err := s.Start(); err == nil {
		t.Error("Start() without a handler succeeded, want error")
	}
}

func TestServer_StopWhenNotRunning(t *testing.T) {
	s := ws.New("127.0.0.1:0", func(fields []string, conn chat.Conn) {})

	if err := s.Stop(); err == nil {
		t.Error("Stop() on a server that never ran succeeded, want error")
	}
}

func TestServer_SpeaksLineProtocolOverWebSocket(t *testing.T) {
	handler := func(fields []string, conn chat.Conn) {
		if fields[0] == protocol.Greeting {
			conn.Enqueue(protocol.CmdAuth)
			return
		}
		conn.EnqueueFields(append([]string{"echo"}, fields...)...)
	}
	s := startServer(t, handler)

	tr, err := clientws.Dial(s.Addr())
	if err != nil {
		t.Fatalf("failed to dial WebSocket server: %v", err)
	}
	defer tr.Close()

	if got := readRecord(t, tr); len(got) != 1 || got[0] != protocol.Greeting {
		t.Fatalf("first frame = %v, want greeting", got)
	}

	if _, err := tr.Write(protocol.Encode(protocol.Greeting)); err != nil {
		t.Fatalf("failed to echo greeting: %v", err)
	}
	if got := readRecord(t, tr); len(got) != 1 || got[0] != protocol.CmdAuth {
		t.Fatalf("reply = %v, want auth", got)
	}

	if _, err := tr.Write(protocol.Encode("msg_in", "hi")); err != nil {
		t.Fatalf("failed to send record: %v", err)
	}
	got := readRecord(t, tr)
	if len(got) != 3 || got[0] != "echo" || got[1] != "msg_in" || got[2] != "hi" {
		t.Errorf("echo = %v, want [echo msg_in hi]", got)
	}
}
