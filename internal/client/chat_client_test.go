package client_test

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dward2nd/cscmu-chat-mini-project/internal/client"
	"github.com/dward2nd/cscmu-chat-mini-project/pkg/protocol"
)

// waitForRecord polls until the fake connection saw a record with the
// given command.
func waitForRecord(t *testing.T, conn *fakeConn, command string) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, record := range conn.Records() {
			if record[0] == command {
				return record
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no %q record sent, got %v", command, conn.Records())
	return nil
}

func TestChatClient_AuthPrompt(t *testing.T) {
	var out bytes.Buffer
	cc := client.NewChatClient(strings.NewReader("alice\nnone\n"), &out)
	conn := &fakeConn{}

	cc.Handle([]string{protocol.CmdAuth}, conn)

	records := conn.Records()
	want := []string{protocol.CmdAuthRes, "alice", "none"}
	if len(records) != 1 || !reflect.DeepEqual(records[0], want) {
		t.Errorf("records = %v, want %v", records, want)
	}
	for _, prompt := range []string{"Username", "Room ID"} {
		if !strings.Contains(out.String(), prompt) {
			t.Errorf("output does not prompt for %s: %q", prompt, out.String())
		}
	}
}

func TestChatClient_StatUpdateRendersAndAcks(t *testing.T) {
	var out bytes.Buffer
	cc := client.NewChatClient(strings.NewReader(""), &out)
	conn := &fakeConn{}

	cc.Handle([]string{protocol.CmdStatUpdate, protocol.SeverityWarning, "Either username or room ID is invalid."}, conn)

	if !strings.Contains(out.String(), "From server [WARNING]: Either username or room ID is invalid.") {
		t.Errorf("output = %q", out.String())
	}
	records := conn.Records()
	if len(records) != 1 || records[0][0] != protocol.CmdEmptyRes {
		t.Errorf("records = %v, want empty_res acknowledgement", records)
	}
}

func TestChatClient_MsgOutRendersAndAcks(t *testing.T) {
	var out bytes.Buffer
	cc := client.NewChatClient(strings.NewReader(""), &out)
	conn := &fakeConn{}

	cc.Handle([]string{protocol.CmdMsgOut, "bob", "hi there", "01/01/2026, 10:00:00"}, conn)

	for _, want := range []string{"bob", "hi there", "01/01/2026, 10:00:00"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q: %q", want, out.String())
		}
	}
	records := conn.Records()
	if len(records) != 1 || records[0][0] != protocol.CmdEmptyRes {
		t.Errorf("records = %v, want empty_res acknowledgement", records)
	}
}

func TestChatClient_LetInPrintsRoomAndStartsInput(t *testing.T) {
	var out bytes.Buffer
	cc := client.NewChatClient(strings.NewReader("hello everyone\n"), &out)
	conn := &fakeConn{}

	cc.Handle([]string{protocol.CmdLetIn, "alice", "4821", "bob", "carol"}, conn)

	for _, want := range []string{"Welcome alice", "4821", "bob", "carol"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q: %q", want, out.String())
		}
	}
	if !cc.Authenticated() {
		t.Error("Authenticated() = false after let_in")
	}

	// The input loop acknowledges first, then forwards typed lines.
	waitForRecord(t, conn, protocol.CmdEmptyRes)
	record := waitForRecord(t, conn, protocol.CmdMsgIn)
	want := []string{protocol.CmdMsgIn, "hello everyone"}
	if !reflect.DeepEqual(record, want) {
		t.Errorf("forwarded %v, want %v", record, want)
	}
}

func TestChatClient_LetInWithoutMembers(t *testing.T) {
	var out bytes.Buffer
	cc := client.NewChatClient(strings.NewReader(""), &out)
	conn := &fakeConn{}

	cc.Handle([]string{protocol.CmdLetIn, "alice", "4821"}, conn)

	if !strings.Contains(out.String(), "There's no member yet.") {
		t.Errorf("output = %q, want the empty-room placeholder", out.String())
	}
}

func TestChatClient_QuitTearsDown(t *testing.T) {
	var out bytes.Buffer
	cc := client.NewChatClient(strings.NewReader(""), &out)
	conn := &fakeConn{}
	cc.Handle([]string{protocol.CmdLetIn, "alice", "4821"}, conn)

	cc.Handle([]string{protocol.CmdQuit}, conn)

	if cc.Authenticated() {
		t.Error("Authenticated() = true after quit")
	}
	if !conn.Stopped() {
		t.Error("connection was not stopped on quit")
	}
}
