package roomrt

import (
	"sync"

	"github.com/fakduai/khun-phaen-sync/internal/metrics"
)

// Registry is the process-local mapping from room_code to live Room.
// Lookups, inserts and removals take a short registry-wide RWMutex (readers
// share it, writers hold it exclusively for one map operation); mutation of
// a Room's fields is serialized per Room by that Room's own mutex, so work
// on different rooms contends only on the map access itself.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Get returns the live Room for code, or nil if absent.
func (reg *Registry) Get(code string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[code]
}

// InsertIfAbsent inserts room under code iff no Room is currently registered
// there, returning the Room that ends up registered (the caller's room on a
// clean insert, or the winner of a race otherwise) and whether the caller's
// room won.
func (reg *Registry) InsertIfAbsent(code string, room *Room) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if existing, ok := reg.rooms[code]; ok {
		return existing, false
	}
	reg.rooms[code] = room
	metrics.ActiveRooms.Set(float64(len(reg.rooms)))
	return room, true
}

// Remove deletes code from the registry if it still maps to room (guards
// against removing a Room that was replaced by a racing Join/revival).
func (reg *Registry) Remove(code string, room *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.rooms[code] == room {
		delete(reg.rooms, code)
		metrics.ActiveRooms.Set(float64(len(reg.rooms)))
	}
}

// Snapshot returns a point-in-time copy of every live Room, for the
// lifecycle worker's sweep.
func (reg *Registry) Snapshot() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, r)
	}
	return out
}

// Len reports the number of live rooms, for /health.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
