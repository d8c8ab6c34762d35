package chat

// User is an authenticated chat participant. It back-references its Room
// and its Connection without owning either.
type User struct {
	name string
	room *Room
	conn Conn
}

// NewUser creates a User bound to a room and a connection.
func NewUser(name string, room *Room, conn Conn) *User {
	return &User{name: name, room: room, conn: conn}
}

// Name returns the display name.
func (u *User) Name() string {
	return u.name
}

// Room returns the room the user belongs to.
func (u *User) Room() *Room {
	return u.room
}

// Conn returns the user's connection.
func (u *User) Conn() Conn {
	return u.conn
}
