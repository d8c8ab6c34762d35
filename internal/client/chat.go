package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dward2nd/cscmu-chat-mini-project/internal/chat"
	"github.com/dward2nd/cscmu-chat-mini-project/pkg/protocol"
)

// ChatClient drives the interactive terminal session: it renders incoming
// records on out and collects user input from in. Its Handle method is
// the chat.Handler bound to the client's connection.
type ChatClient struct {
	in  *bufio.Reader
	out io.Writer

	mu            sync.Mutex
	authenticated bool
}

// NewChatClient creates a ChatClient reading user input from in and
// printing to out. The command entry point passes os.Stdin and os.Stdout.
func NewChatClient(in io.Reader, out io.Writer) *ChatClient {
	return &ChatClient{in: bufio.NewReader(in), out: out}
}

// Authenticated reports whether the server has let the user in.
func (cc *ChatClient) Authenticated() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.authenticated
}

// Handle renders one incoming record and emits the matching reply.
func (cc *ChatClient) Handle(fields []string, conn chat.Conn) {
	switch fields[0] {
	case protocol.CmdAuth:
		cc.handleAuth(conn)

	case protocol.CmdStatUpdate:
		if len(fields) >= 3 {
			fmt.Fprintf(cc.out, "From server [%s]: %s\n", fields[1], fields[2])
		}
		_ = conn.Enqueue(protocol.CmdEmptyRes)

	case protocol.CmdLetIn:
		cc.handleLetIn(fields, conn)

	case protocol.CmdMsgOut:
		if len(fields) >= 4 {
			fmt.Fprintf(cc.out, "\n  %s  %s\n  - %s\n\n", fields[1], fields[2], fields[3])
		}
		_ = conn.Enqueue(protocol.CmdEmptyRes)

	case protocol.CmdQuit:
		cc.mu.Lock()
		cc.authenticated = false
		cc.mu.Unlock()
		_ = conn.Stop()
	}
}

// handleAuth prompts for the username and room id and answers auth_res.
func (cc *ChatClient) handleAuth(conn chat.Conn) {
	fmt.Fprintln(cc.out)
	fmt.Fprintln(cc.out, "Username")
	fmt.Fprintln(cc.out, "can consist of\n  - alphabets A-Z,\n  - digits 0-9\n  - underscores.\n  - must not start with a digit.")
	username := cc.readLine("-> ")

	fmt.Fprintln(cc.out)
	fmt.Fprintln(cc.out, "Room ID")
	fmt.Fprintln(cc.out, `is 4-digit code. To create new, type "none"`)
	roomID := cc.readLine("-> ")
	fmt.Fprintln(cc.out)

	_ = conn.EnqueueFields(protocol.CmdAuthRes, username, roomID)
}

// handleLetIn prints the room summary and hands the terminal over to the
// message input loop.
func (cc *ChatClient) handleLetIn(fields []string, conn chat.Conn) {
	if len(fields) < 3 {
		return
	}
	username, roomID, members := fields[1], fields[2], fields[3:]

	fmt.Fprintln(cc.out, "=============================================")
	fmt.Fprintf(cc.out, "Welcome %s to Takumi Messenger!\n", username)
	fmt.Fprintf(cc.out, "You are in Room ID %s\n", roomID)
	fmt.Fprintln(cc.out, "Current active members:")
	if len(members) > 0 {
		for _, member := range members {
			fmt.Fprintf(cc.out, "\t- %s\n", member)
		}
	} else {
		fmt.Fprintln(cc.out, "\t--- There's no member yet. ---")
	}
	fmt.Fprintln(cc.out, `
To quit the chat, type "\quit"`)
	fmt.Fprintln(cc.out, "=============================================")

	cc.mu.Lock()
	already := cc.authenticated
	cc.authenticated = true
	cc.mu.Unlock()

	if !already {
		go cc.inputLoop(conn)
	}
}

// inputLoop forwards each typed line as a msg_in record. The session has
// to acknowledge the let_in before the conversation starts.
func (cc *ChatClient) inputLoop(conn chat.Conn) {
	_ = conn.Enqueue(protocol.CmdEmptyRes)

	for cc.Authenticated() {
		line, err := cc.in.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" || err == nil {
			if sendErr := conn.EnqueueFields(protocol.CmdMsgIn, line); sendErr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// readLine prompts and reads one trimmed input line.
func (cc *ChatClient) readLine(prompt string) string {
	fmt.Fprint(cc.out, prompt)
	line, _ := cc.in.ReadString('\n')
	return strings.TrimSpace(line)
}
