package chat

import (
	"strings"
	"sync"
)

// Room is a named group of users whose messages are broadcast to each
// other. Membership is keyed by peer address and iterated in join order;
// a lower-cased username set is kept in sync with it for uniqueness
// checks.
type Room struct {
	id string

	mu        sync.Mutex
	users     map[string]*User
	order     []string
	usernames map[string]struct{}
}

func newRoom(id string) *Room {
	return &Room{
		id:        id,
		users:     make(map[string]*User),
		usernames: make(map[string]struct{}),
	}
}

// ID returns the room's 4-digit identifier.
func (r *Room) ID() string {
	return r.id
}

// Size returns the current number of members.
func (r *Room) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// HasUsername reports whether name is already taken in the room,
// case-insensitively.
func (r *Room) HasUsername(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.usernames[strings.ToLower(name)]
	return ok
}

// Members returns the display names of current members in join order.
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.order))
	for _, addr := range r.order {
		names = append(names, r.users[addr].Name())
	}
	return names
}

// AddUser inserts the user into the membership and username sets. It
// does no enqueue I/O, so the caller may hold its own registration lock
// across the call; the join notice is announced by the caller afterward.
func (r *Room) AddUser(u *User) {
	addr := u.Conn().RemoteAddr()

	r.mu.Lock()
	r.users[addr] = u
	r.order = append(r.order, addr)
	r.usernames[strings.ToLower(u.Name())] = struct{}{}
	r.mu.Unlock()
}

// RemoveUser removes the user from both sets and reports whether they
// were a member. The leave notice is announced by the caller.
func (r *Room) RemoveUser(u *User) bool {
	addr := u.Conn().RemoteAddr()

	r.mu.Lock()
	if _, ok := r.users[addr]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.users, addr)
	delete(r.usernames, strings.ToLower(u.Name()))
	for i, a := range r.order {
		if a == addr {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	return true
}

// Broadcast enqueues one identical record on every member connection in
// join order. A member that stopped concurrently, or whose outbound
// queue is full, is skipped.
func (r *Room) Broadcast(command string, args ...string) {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.order))
	for _, addr := range r.order {
		conns = append(conns, r.users[addr].Conn())
	}
	r.mu.Unlock()

	fields := append([]string{command}, args...)
	for _, conn := range conns {
		_ = conn.EnqueueFields(fields...)
	}
}
