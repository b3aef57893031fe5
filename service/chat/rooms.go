package chat

import (
	"sync"
)

// RoomRegistry maps a chat key to the set of connections currently
// joined. Membership here is a liveness artifact only; persisted chat
// membership lives in the store and is enforced by the REST layer.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]map[*Client]struct{})}
}

// Join inserts the connection into the room's set, creating the set if
// absent. Idempotent.
func (r *RoomRegistry) Join(chatKey string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[chatKey]
	if set == nil {
		set = make(map[*Client]struct{})
		r.rooms[chatKey] = set
	}
	set[c] = struct{}{}
}

// Leave removes the connection from the room's set; absent room or
// member is a silent no-op. Empty sets are garbage-collected.
func (r *RoomRegistry) Leave(chatKey string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[chatKey]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.rooms, chatKey)
	}
}

// Count returns the number of connections joined to the room.
func (r *RoomRegistry) Count(chatKey string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[chatKey])
}

// Contains reports whether c is joined to the room.
func (r *RoomRegistry) Contains(chatKey string, c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[chatKey][c]
	return ok
}

// Broadcast delivers payload to every open connection in the room,
// skipping exclude when non-nil. Iteration runs over a snapshot so
// joins/leaves during delivery cannot corrupt the set. Returns the
// number of connections the payload was queued for.
func (r *RoomRegistry) Broadcast(chatKey string, payload []byte, exclude *Client) int {
	r.mu.RLock()
	set := r.rooms[chatKey]
	members := make([]*Client, 0, len(set))
	for c := range set {
		members = append(members, c)
	}
	r.mu.RUnlock()

	n := 0
	for _, c := range members {
		if c == exclude || !c.Open() {
			continue
		}
		if c.Enqueue(payload) {
			n++
		}
	}
	return n
}
