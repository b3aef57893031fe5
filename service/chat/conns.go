package chat

import (
	"sync"
)

// ConnRegistry maps an authenticated user id to their latest live
// connection, for direct addressed delivery. A reconnecting user
// supersedes their old link; the old link is not closed here, its own
// disconnect path cleans it up. Rebuilt from scratch on restart.
type ConnRegistry struct {
	mu     sync.RWMutex
	byUser map[int64]*Client
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{byUser: make(map[int64]*Client)}
}

// Register overwrites any prior entry for the user (last write wins).
func (r *ConnRegistry) Register(userID int64, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = c
}

// Unregister removes the entry; no-op if absent.
func (r *ConnRegistry) Unregister(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
}

// Release removes the entry only if it still points at c. The disconnect
// path uses this so a superseded connection's close cannot evict the
// connection that replaced it.
func (r *ConnRegistry) Release(userID int64, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUser[userID]; ok && cur == c {
		delete(r.byUser, userID)
	}
}

// Lookup returns the user's live connection. Callers must check
// liveness (Client.Open) before writing.
func (r *ConnRegistry) Lookup(userID int64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// SendToUser delivers a payload to the user's live connection, if any.
func (r *ConnRegistry) SendToUser(userID int64, payload []byte) bool {
	c, ok := r.Lookup(userID)
	if !ok || !c.Open() {
		return false
	}
	return c.Enqueue(payload)
}
