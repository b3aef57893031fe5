package chat_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chaters/service/chat"
	"chaters/service/chat/handlers"
)

type fakeVerifier struct {
	users map[string]int64
}

func (v *fakeVerifier) Verify(_ context.Context, token string) (int64, error) {
	if id, ok := v.users[token]; ok {
		return id, nil
	}
	return 0, chat.ErrVerifyFailed
}

type fakeStore struct {
	nicknames map[int64]string
	lastRead  chan string // "chatKey/userID" per TouchLastRead call
}

func (s *fakeStore) Nickname(_ context.Context, userID int64) (string, error) {
	return s.nicknames[userID], nil
}

func (s *fakeStore) TouchLastRead(_ context.Context, chatKey string, userID int64) error {
	select {
	case s.lastRead <- chatKey:
	default:
	}
	return nil
}

func newTestGateway(t *testing.T) (*chat.Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier := &fakeVerifier{users: map[string]int64{"tok-1": 1, "tok-2": 2}}
	store := &fakeStore{
		nicknames: map[int64]string{1: "alice", 2: "bob"},
		lastRead:  make(chan string, 8),
	}

	srv := chat.NewServer("gw-test", verifier, store, nil)
	handlers.RegisterAll(srv)

	r := gin.New()
	r.GET("/ws", srv.HandleWS)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, v map[string]any) {
	t.Helper()
	if err := ws.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]any
	if err := ws.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	return got
}

func expectSilence(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var got map[string]any
	if err := ws.ReadJSON(&got); err == nil {
		t.Fatalf("expected no frame, got %v", got)
	}
}

func authAs(t *testing.T, ws *websocket.Conn, token string) {
	t.Helper()
	send(t, ws, map[string]any{"type": "auth", "token": token})
	got := recv(t, ws)
	if got["type"] != "auth_success" {
		t.Fatalf("auth reply = %v, want auth_success", got)
	}
}

func joinRoom(t *testing.T, srv *chat.Server, ws *websocket.Conn, room string, wantCount int) {
	t.Helper()
	send(t, ws, map[string]any{"type": "join", "chatId": room})
	waitFor(t, func() bool { return srv.Rooms().Count(room) >= wantCount })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestAuthSuccessAndFailure(t *testing.T) {
	_, ts := newTestGateway(t)
	ws := dial(t, ts)

	send(t, ws, map[string]any{"type": "auth", "token": "bogus"})
	got := recv(t, ws)
	if got["type"] != "error" {
		t.Fatalf("bad-token reply = %v, want error frame", got)
	}

	// the connection stays open; a retry with a good token succeeds
	send(t, ws, map[string]any{"type": "auth", "token": "tok-1"})
	got = recv(t, ws)
	if got["type"] != "auth_success" || got["userId"] != float64(1) {
		t.Fatalf("retry reply = %v, want auth_success for user 1", got)
	}
}

func TestMessageFanOutExcludesSender(t *testing.T) {
	srv, ts := newTestGateway(t)

	c1 := dial(t, ts)
	authAs(t, c1, "tok-1")
	joinRoom(t, srv, c1, "#team", 1)

	c2 := dial(t, ts)
	authAs(t, c2, "tok-2")
	joinRoom(t, srv, c2, "#team", 2)

	send(t, c1, map[string]any{
		"type": "message", "chatId": "#team",
		"message": map[string]any{"content": "hi"},
	})

	got := recv(t, c2)
	if got["type"] != "message" {
		t.Fatalf("c2 frame = %v, want message", got)
	}
	msg, _ := got["message"].(map[string]any)
	if msg["content"] != "hi" {
		t.Errorf("message payload = %v", got["message"])
	}

	expectSilence(t, c1) // no echo to the sender
}

func TestTypingExcludesSenderAndCarriesNickname(t *testing.T) {
	srv, ts := newTestGateway(t)

	c1 := dial(t, ts)
	authAs(t, c1, "tok-1")
	joinRoom(t, srv, c1, "#team", 1)

	c2 := dial(t, ts)
	authAs(t, c2, "tok-2")
	joinRoom(t, srv, c2, "#team", 2)

	send(t, c1, map[string]any{"type": "typing", "chatId": "#team"})

	got := recv(t, c2)
	if got["type"] != "typing" || got["chatId"] != "#team" || got["userNickname"] != "alice" {
		t.Fatalf("typing frame = %v", got)
	}
	expectSilence(t, c1)
}

func TestDeleteBroadcastIncludesSender(t *testing.T) {
	srv, ts := newTestGateway(t)

	c1 := dial(t, ts)
	authAs(t, c1, "tok-1")
	joinRoom(t, srv, c1, "#team", 1)

	c2 := dial(t, ts)
	authAs(t, c2, "tok-2")
	joinRoom(t, srv, c2, "#team", 2)

	send(t, c1, map[string]any{"type": "delete", "chatId": "#team", "messageId": 42})

	for _, ws := range []*websocket.Conn{c1, c2} {
		got := recv(t, ws)
		if got["type"] != "message_deleted" || got["messageId"] != float64(42) || got["chatId"] != "#team" {
			t.Fatalf("delete frame = %v", got)
		}
	}
}

func TestJoinSupersedesPreviousRoom(t *testing.T) {
	srv, ts := newTestGateway(t)

	ws := dial(t, ts)
	authAs(t, ws, "tok-1")
	joinRoom(t, srv, ws, "#a", 1)
	joinRoom(t, srv, ws, "#b", 1)

	waitFor(t, func() bool { return srv.Rooms().Count("#a") == 0 })
	if srv.Rooms().Count("#b") != 1 {
		t.Errorf("Count(#b) = %d, want 1", srv.Rooms().Count("#b"))
	}
}

func TestReadTouchesLastRead(t *testing.T) {
	srv, ts := newTestGateway(t)
	store := srv.Store().(*fakeStore)

	ws := dial(t, ts)
	authAs(t, ws, "tok-1")
	joinRoom(t, srv, ws, "#team", 1)

	send(t, ws, map[string]any{"type": "read", "chatId": "#team"})

	select {
	case chatKey := <-store.lastRead:
		if chatKey != "#team" {
			t.Errorf("TouchLastRead chat = %q, want #team", chatKey)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("TouchLastRead was never called")
	}
}

func TestMalformedFrameKeepsConnectionAlive(t *testing.T) {
	_, ts := newTestGateway(t)
	ws := dial(t, ts)

	if err := ws.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	// unknown types are ignored silently as well
	send(t, ws, map[string]any{"type": "frobnicate"})

	authAs(t, ws, "tok-1")
}

func TestEventsBeforeAuthAreIgnored(t *testing.T) {
	srv, ts := newTestGateway(t)
	ws := dial(t, ts)

	send(t, ws, map[string]any{"type": "join", "chatId": "#team"})
	send(t, ws, map[string]any{
		"type": "message", "chatId": "#team",
		"message": map[string]any{"content": "hi"},
	})

	authAs(t, ws, "tok-1")
	if srv.Rooms().Count("#team") != 0 {
		t.Error("unauthenticated join was applied")
	}
}

func TestDisconnectCleansRegistries(t *testing.T) {
	srv, ts := newTestGateway(t)

	ws := dial(t, ts)
	authAs(t, ws, "tok-1")
	joinRoom(t, srv, ws, "#team", 1)

	if _, ok := srv.Conns().Lookup(1); !ok {
		t.Fatal("user 1 not in connection registry after auth")
	}

	_ = ws.Close()
	waitFor(t, func() bool {
		_, still := srv.Conns().Lookup(1)
		return !still && srv.Rooms().Count("#team") == 0
	})
}

func TestConcurrentAuthLastWriteWins(t *testing.T) {
	srv, ts := newTestGateway(t)

	c1 := dial(t, ts)
	authAs(t, c1, "tok-1")
	c2 := dial(t, ts)
	authAs(t, c2, "tok-1")

	// registry points at exactly one of them
	reg, ok := srv.Conns().Lookup(1)
	if !ok || reg == nil {
		t.Fatal("user 1 absent from connection registry")
	}

	// both remain independently joinable to rooms
	joinRoom(t, srv, c1, "#a", 1)
	joinRoom(t, srv, c2, "#b", 1)
	if srv.Rooms().Count("#a") != 1 || srv.Rooms().Count("#b") != 1 {
		t.Errorf("room counts = %d/%d, want 1/1",
			srv.Rooms().Count("#a"), srv.Rooms().Count("#b"))
	}
}

func TestPerRecipientOrdering(t *testing.T) {
	srv, ts := newTestGateway(t)

	c1 := dial(t, ts)
	authAs(t, c1, "tok-1")
	joinRoom(t, srv, c1, "#team", 1)

	c2 := dial(t, ts)
	authAs(t, c2, "tok-2")
	joinRoom(t, srv, c2, "#team", 2)

	const n = 20
	for i := 0; i < n; i++ {
		send(t, c1, map[string]any{
			"type": "message", "chatId": "#team",
			"message": map[string]any{"seq": i},
		})
	}

	for i := 0; i < n; i++ {
		got := recv(t, c2)
		msg, _ := got["message"].(map[string]any)
		if msg["seq"] != float64(i) {
			t.Fatalf("out of order: got seq %v at position %d", msg["seq"], i)
		}
	}
}

func TestAuthSuccessPayloadShape(t *testing.T) {
	_, ts := newTestGateway(t)
	ws := dial(t, ts)

	send(t, ws, map[string]any{"type": "auth", "token": "tok-2"})
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got struct {
		Type   string `json:"type"`
		UserID int64  `json:"userId"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "auth_success" || got.UserID != 2 {
		t.Errorf("auth_success = %+v", got)
	}
}
