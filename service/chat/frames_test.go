package chat

import (
	"encoding/json"
	"testing"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"message","chatId":"#team","message":{"content":"hi"}}`))
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if f.Type != FrameMessage || f.ChatID != "#team" {
		t.Errorf("parsed frame = %+v", f)
	}
	if string(f.Message) != `{"content":"hi"}` {
		t.Errorf("Message = %s", f.Message)
	}
}

func TestParseFrameMalformed(t *testing.T) {
	for _, raw := range []string{"", "not json", "{", `{"chatId":"#team"}`, `123`} {
		if _, err := ParseFrame([]byte(raw)); err == nil {
			t.Errorf("ParseFrame(%q) expected error", raw)
		}
	}
}

func TestBuildFrames(t *testing.T) {
	var got map[string]any

	if err := json.Unmarshal(BuildAuthSuccess(7), &got); err != nil {
		t.Fatal(err)
	}
	if got["type"] != "auth_success" || got["userId"] != float64(7) {
		t.Errorf("auth_success = %v", got)
	}

	if err := json.Unmarshal(BuildTyping("#team", "alice"), &got); err != nil {
		t.Fatal(err)
	}
	if got["chatId"] != "#team" || got["userNickname"] != "alice" {
		t.Errorf("typing = %v", got)
	}

	if err := json.Unmarshal(BuildMessageDeleted("#team", 42), &got); err != nil {
		t.Fatal(err)
	}
	if got["messageId"] != float64(42) || got["chatId"] != "#team" {
		t.Errorf("message_deleted = %v", got)
	}

	if err := json.Unmarshal(BuildMessage(json.RawMessage(`{"content":"hi"}`)), &got); err != nil {
		t.Fatal(err)
	}
	msg, ok := got["message"].(map[string]any)
	if !ok || msg["content"] != "hi" {
		t.Errorf("message = %v", got)
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		phase Phase
		typ   string
		want  bool
	}{
		{PhaseUnauthenticated, FrameAuth, true},
		{PhaseUnauthenticated, FrameJoin, false},
		{PhaseUnauthenticated, FrameMessage, false},
		{PhaseAuthenticated, FrameAuth, true},
		{PhaseAuthenticated, FrameJoin, true},
		{PhaseAuthenticated, FrameTyping, false},
		{PhaseJoined, FrameJoin, true},
		{PhaseJoined, FrameMessage, true},
		{PhaseJoined, FrameTyping, true},
		{PhaseJoined, FrameRead, true},
		{PhaseJoined, FrameDelete, true},
		{PhaseJoined, "bogus", false},
		{PhaseUnauthenticated, "bogus", false},
	}
	for _, tt := range tests {
		if got := Allowed(tt.phase, tt.typ); got != tt.want {
			t.Errorf("Allowed(%v, %q) = %v, want %v", tt.phase, tt.typ, got, tt.want)
		}
	}
}
