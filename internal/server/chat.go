// Package server implements the server-side chat protocol: the per-peer
// authentication state machine, room assignment, message relay, and
// disconnect handling.
package server

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dward2nd/cscmu-chat-mini-project/internal/chat"
	"github.com/dward2nd/cscmu-chat-mini-project/internal/transport/tcp"
	"github.com/dward2nd/cscmu-chat-mini-project/pkg/protocol"
)

// timestampLayout renders message arrival times the way users see them.
const timestampLayout = "01/02/2006, 15:04:05"

// ChatServer binds the chat protocol handler to a TCP listener. The same
// handler may also serve additional listeners (the WebSocket server).
type ChatServer struct {
	server   *tcp.Server
	registry *chat.Registry

	mu         sync.Mutex
	authorized map[string]*chat.User
}

// New creates a ChatServer listening on address. When console is non-nil
// it is watched for the kill sentinel. quiet suppresses connection-status
// logging.
func New(address string, quiet bool, console io.Reader) *ChatServer {
	cs := &ChatServer{
		registry:   chat.NewRegistry(),
		authorized: make(map[string]*chat.User),
	}

	srv := tcp.New(address, cs.Handle)
	srv.Quiet = quiet
	srv.Console = console
	srv.OnShutdown = cs.notifyShutdown
	cs.server = srv
	return cs
}

// Run starts accepting connections and blocks until the server stops.
func (cs *ChatServer) Run() error {
	return cs.server.Start()
}

// Stop notifies every authorized user and closes the listener.
func (cs *ChatServer) Stop() error {
	return cs.server.Stop()
}

// Addr returns the listening address.
func (cs *ChatServer) Addr() string {
	return cs.server.Addr()
}

// Registry exposes the room registry.
func (cs *ChatServer) Registry() *chat.Registry {
	return cs.registry
}

// AuthorizedCount returns the number of authenticated peers.
func (cs *ChatServer) AuthorizedCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.authorized)
}

// Handle is the chat.Handler bound to every accepted connection. Each
// handled record produces at most one direct reply; validation failures
// always answer with a stat_update warning.
func (cs *ChatServer) Handle(fields []string, conn chat.Conn) {
	switch fields[0] {
	case protocol.Greeting:
		// The client just connected and echoed the greeting back.
		_ = conn.Enqueue(protocol.CmdAuth)

	case protocol.CmdAuthRes:
		cs.handleAuth(fields, conn)

	case protocol.CmdMsgIn:
		cs.handleMessage(fields, conn)

	case protocol.CmdQuit:
		cs.mu.Lock()
		user, ok := cs.authorized[conn.RemoteAddr()]
		if ok {
			delete(cs.authorized, conn.RemoteAddr())
		}
		cs.mu.Unlock()
		if ok {
			cs.leaveRoom(user)
		}
		_ = conn.Stop()

	case protocol.CmdEmptyRes:
		// An out-of-order acknowledgement from a peer that has not
		// authenticated yet means the auth request got lost on it.
		cs.mu.Lock()
		_, ok := cs.authorized[conn.RemoteAddr()]
		cs.mu.Unlock()
		if !ok {
			_ = conn.Enqueue(protocol.CmdAuth)
		}

	default:
		cs.warn(conn, fmt.Sprintf("The command %q is not supported.", fields[0]))
	}
}

// handleAuth validates an auth_res record, resolves or creates the room,
// and lets the user in.
func (cs *ChatServer) handleAuth(fields []string, conn chat.Conn) {
	if len(fields) != 3 || !protocol.ValidUsername(fields[1]) ||
		(fields[2] != protocol.RoomNone && !protocol.ValidRoomID(fields[2])) {
		cs.warn(conn, "Either username or room ID is invalid.")
		return
	}
	username, roomID := fields[1], fields[2]

	// Room resolution, the uniqueness check, and user registration happen
	// under one lock so two clients cannot claim the same name at once.
	// Enqueue I/O waits until the lock is released so a stalled peer
	// cannot wedge every other handler behind cs.mu.
	cs.mu.Lock()
	var room *chat.Room
	if roomID == protocol.RoomNone {
		room = cs.registry.Create()
	} else {
		var ok bool
		room, ok = cs.registry.Lookup(roomID)
		if !ok {
			cs.mu.Unlock()
			cs.warn(conn, "The Room ID you specified does not exist.")
			return
		}
	}

	if room.HasUsername(username) {
		cs.mu.Unlock()
		cs.warn(conn, fmt.Sprintf("The name %q already exists in the room with ID %s", username, roomID))
		return
	}

	user := chat.NewUser(username, room, conn)
	members := room.Members()
	room.AddUser(user)
	cs.authorized[conn.RemoteAddr()] = user
	cs.mu.Unlock()

	// let_in lists the members present before the join; the notice then
	// goes to everyone, newcomer included.
	letIn := append([]string{protocol.CmdLetIn, username, room.ID()}, members...)
	_ = conn.EnqueueFields(letIn...)
	room.Broadcast(protocol.CmdStatUpdate, protocol.SeverityNotice,
		fmt.Sprintf("%s joined the chat.", username))
}

// handleMessage relays a msg_in record from an authenticated peer.
func (cs *ChatServer) handleMessage(fields []string, conn chat.Conn) {
	cs.mu.Lock()
	user, ok := cs.authorized[conn.RemoteAddr()]
	cs.mu.Unlock()
	if !ok {
		cs.warn(conn, "You are not in a chat room yet.")
		return
	}

	var text string
	if len(fields) > 1 {
		text = fields[1]
	}

	switch {
	case text == "":
		_ = conn.Enqueue(protocol.CmdEmptyRes)

	case strings.HasPrefix(text, "\\"):
		if text[1:] == "quit" {
			cs.mu.Lock()
			delete(cs.authorized, conn.RemoteAddr())
			cs.mu.Unlock()
			cs.leaveRoom(user)
			_ = conn.Stop()
		} else {
			cs.warn(conn, fmt.Sprintf("Unknown command %s", text[1:]))
		}

	default:
		user.Room().Broadcast(protocol.CmdMsgOut, user.Name(), text,
			time.Now().Format(timestampLayout))
	}
}

// leaveRoom removes the user from their room, announces the leave to the
// remaining members, and evicts the room once it has no members left.
func (cs *ChatServer) leaveRoom(user *chat.User) {
	room := user.Room()
	if room.RemoveUser(user) {
		room.Broadcast(protocol.CmdStatUpdate, protocol.SeverityNotice,
			fmt.Sprintf("%s left the chat.", user.Name()))
	}
	if room.Size() == 0 {
		cs.registry.Remove(room.ID())
	}
}

// notifyShutdown enqueues a quit record on every authorized user's
// connection, best-effort.
func (cs *ChatServer) notifyShutdown() {
	cs.mu.Lock()
	users := make([]*chat.User, 0, len(cs.authorized))
	for _, user := range cs.authorized {
		users = append(users, user)
	}
	cs.mu.Unlock()

	for _, user := range users {
		_ = user.Conn().Enqueue(protocol.CmdQuit)
	}
}

func (cs *ChatServer) warn(conn chat.Conn, reason string) {
	_ = conn.EnqueueFields(protocol.CmdStatUpdate, protocol.SeverityWarning, reason)
}
