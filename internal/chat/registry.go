package chat

import (
	"fmt"
	"math/rand"
	"sync"
)

// Registry maps room identifiers to rooms. Rooms are created lazily when
// a client asks for a fresh one and evicted once their last member leaves.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Create makes a new room under an unused 4-digit id and registers it.
func (g *Registry) Create() *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	room := newRoom(g.freeID())
	g.rooms[room.id] = room
	return room
}

// freeID picks a random 4-digit id not present in the registry. After a
// bounded number of rolls it falls back to a numeric scan, so it only
// gives up when all 10000 ids are taken. Callers hold g.mu.
func (g *Registry) freeID() string {
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("%04d", rand.Intn(10000))
		if _, ok := g.rooms[id]; !ok {
			return id
		}
	}
	for n := 0; n < 10000; n++ {
		id := fmt.Sprintf("%04d", n)
		if _, ok := g.rooms[id]; !ok {
			return id
		}
	}
	panic("chat: no room identifiers left")
}

// Lookup resolves a room id.
func (g *Registry) Lookup(id string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[id]
	return room, ok
}

// Remove drops the room with the given id, if present.
func (g *Registry) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, id)
}

// Len returns the number of registered rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}
