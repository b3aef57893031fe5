package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"chaters/logger"
)

// ErrVerifyFailed is what verifier implementations return for a
// rejected credential when they have nothing more specific.
var ErrVerifyFailed = errors.New("credential rejected")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Verifier maps a bearer credential to a user identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (int64, error)
}

// Store is the slice of persistence the gateway touches directly.
// Everything else (message durability, membership authorization) happens
// on the REST path before frames reach the gateway.
type Store interface {
	Nickname(ctx context.Context, userID int64) (string, error)
	TouchLastRead(ctx context.Context, chatKey string, userID int64) error
}

// Presence mirrors liveness into a shared store so other processes (the
// notify worker) can tell who is offline. Best effort: the gateway logs
// and ignores its errors.
type Presence interface {
	Online(ctx context.Context, userID int64, gatewayID string) error
	Offline(ctx context.Context, userID int64) error
}

// Server owns the process-wide registries and the per-connection event
// loop. One HandleWS call per physical connection.
type Server struct {
	gwID     string
	conns    *ConnRegistry
	rooms    *RoomRegistry
	disp     *Dispatcher
	verifier Verifier
	store    Store
	presence Presence // may be nil
}

func NewServer(gwID string, verifier Verifier, store Store, presence Presence) *Server {
	return &Server{
		gwID:     gwID,
		conns:    NewConnRegistry(),
		rooms:    NewRoomRegistry(),
		disp:     NewDispatcher(),
		verifier: verifier,
		store:    store,
		presence: presence,
	}
}

func (s *Server) GatewayID() string    { return s.gwID }
func (s *Server) Conns() *ConnRegistry { return s.conns }
func (s *Server) Rooms() *RoomRegistry { return s.rooms }
func (s *Server) Disp() *Dispatcher    { return s.disp }
func (s *Server) Verifier() Verifier   { return s.verifier }
func (s *Server) Store() Store         { return s.store }
func (s *Server) Presence() Presence   { return s.presence }

// HandleWS upgrades the request and runs the connection's read loop.
// Events from one connection are processed to completion in order;
// events across connections interleave freely.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	client := NewClient(ws)
	go client.writePump()
	logger.Debugf("[ws] connected conn=%s remote=%s", client.ConnID, ws.RemoteAddr())

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debugf("[ws] peer closed conn=%s", client.ConnID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", client.ConnID, rerr)
			} else {
				logger.Debugf("[ws] read err conn=%s err=%v", client.ConnID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] drop malformed frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		if !Allowed(client.Phase(), frame.Type) {
			// unknown types land here too; both are ignored silently
			logger.Debugf("[ws] ignore frame type=%s phase=%s conn=%s", frame.Type, client.Phase(), client.ConnID)
			continue
		}

		h, ok := s.disp.Get(frame.Type)
		if !ok {
			continue
		}
		if err := h.Handle(&Context{S: s}, frame, client); err != nil {
			logger.Infof("[ws] handler type=%s conn=%s err=%v", frame.Type, client.ConnID, err)
			continue
		}
	}

	s.teardown(client)
}

// teardown runs the terminal transition: remove the connection from both
// registries and drop the presence mirror entry. Safe against a user who
// already reconnected (guarded Release).
func (s *Server) teardown(client *Client) {
	client.shutdown()

	if room := client.Room(); room != "" {
		s.rooms.Leave(room, client)
	}
	if userID := client.UserID(); userID != 0 {
		s.conns.Release(userID, client)
		if s.presence != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if _, still := s.conns.Lookup(userID); !still {
				if err := s.presence.Offline(ctx, userID); err != nil {
					logger.Debugf("[ws] presence offline user=%d err=%v", userID, err)
				}
			}
		}
	}
	logger.Debugf("[ws] disconnected conn=%s", client.ConnID)
}
