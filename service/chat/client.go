package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chaters/logger"
	"chaters/tools/ids"
)

const (
	writeWait     = 5 * time.Second
	sendQueueSize = 256
)

// Client is one physical realtime link. Session fields are written only
// by the connection's own read loop; the mutex covers the reads done by
// broadcast paths on other goroutines.
type Client struct {
	ConnID string
	ws     *websocket.Conn

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	phase    Phase
	userID   int64
	nickname string
	room     string // current room key, "" when not joined
}

func NewClient(ws *websocket.Conn) *Client {
	return &Client{
		ConnID: ids.GenerateString(),
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		closed: make(chan struct{}),
	}
}

func (c *Client) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

func (c *Client) UserID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) Nickname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nickname
}

func (c *Client) Room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

// SetAuthenticated records the verified identity and the nickname cached
// for typing fan-out. Refreshed on every successful auth.
func (c *Client) SetAuthenticated(userID int64, nickname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.nickname = nickname
	if c.phase == PhaseUnauthenticated {
		c.phase = PhaseAuthenticated
	}
}

// SetRoom records the room this connection is joined to.
func (c *Client) SetRoom(chatKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = chatKey
	c.phase = PhaseJoined
}

// Open reports whether the underlying transport is still usable.
func (c *Client) Open() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

// Enqueue hands a payload to the client's writer. Returns false when the
// connection is closed or the queue is full; a slow client is skipped,
// never retried.
func (c *Client) Enqueue(payload []byte) bool {
	if !c.Open() {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		logger.Debugf("[chat] send queue full, drop conn=%s", c.ConnID)
		return false
	}
}

// shutdown marks the client closed and closes the socket. Safe to call
// from any goroutine, any number of times.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

// writePump is the connection's single writer goroutine;
// gorilla/websocket does not allow concurrent writes.
func (c *Client) writePump() {
	defer c.shutdown()
	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debugf("[chat] write failed conn=%s err=%v", c.ConnID, err)
				return
			}
		}
	}
}
