package chat

import (
	"testing"
)

func TestRoomJoinIdempotent(t *testing.T) {
	r := NewRoomRegistry()
	c := testClient("c1")

	r.Join("#team", c)
	r.Join("#team", c)

	if n := r.Count("#team"); n != 1 {
		t.Errorf("Count(#team) = %d, want 1", n)
	}
}

func TestRoomLeave(t *testing.T) {
	r := NewRoomRegistry()
	c := testClient("c1")

	r.Join("#team", c)
	r.Leave("#team", c)
	if r.Contains("#team", c) {
		t.Error("Contains after Leave = true, want false")
	}
	if n := r.Count("#team"); n != 0 {
		t.Errorf("Count after Leave = %d, want 0", n)
	}

	// absent room and absent member are silent no-ops
	r.Leave("#nope", c)
	r.Leave("#team", testClient("c2"))
}

func TestRoomBroadcastExcludesSender(t *testing.T) {
	r := NewRoomRegistry()
	sender := testClient("sender")
	peer1 := testClient("peer1")
	peer2 := testClient("peer2")

	r.Join("#team", sender)
	r.Join("#team", peer1)
	r.Join("#team", peer2)

	n := r.Broadcast("#team", []byte("x"), sender)
	if n != 2 {
		t.Fatalf("Broadcast delivered to %d connections, want 2", n)
	}

	if len(sender.send) != 0 {
		t.Error("sender received its own broadcast")
	}
	for _, c := range []*Client{peer1, peer2} {
		if len(c.send) != 1 {
			t.Errorf("%s received %d payloads, want exactly 1", c.ConnID, len(c.send))
		}
	}
}

func TestRoomBroadcastSkipsClosed(t *testing.T) {
	r := NewRoomRegistry()
	open := testClient("open")
	dead := testClient("dead")
	close(dead.closed)

	r.Join("#team", open)
	r.Join("#team", dead)

	if n := r.Broadcast("#team", []byte("x"), nil); n != 1 {
		t.Errorf("Broadcast delivered to %d connections, want 1", n)
	}
	if len(dead.send) != 0 {
		t.Error("closed connection received a broadcast")
	}
}

func TestRoomBroadcastWithoutExclusion(t *testing.T) {
	r := NewRoomRegistry()
	a := testClient("a")
	b := testClient("b")
	r.Join("#team", a)
	r.Join("#team", b)

	if n := r.Broadcast("#team", []byte("x"), nil); n != 2 {
		t.Errorf("Broadcast delivered to %d connections, want 2", n)
	}
}

// A connection is a member of at most one room at a time; the join
// handler enforces leave-then-join, modeled here at the registry level.
func TestSingleRoomSupersede(t *testing.T) {
	r := NewRoomRegistry()
	c := testClient("c1")

	r.Join("#a", c)
	r.Leave("#a", c)
	r.Join("#b", c)

	if r.Contains("#a", c) {
		t.Error("still a member of #a after superseding join")
	}
	if !r.Contains("#b", c) {
		t.Error("not a member of #b after join")
	}
}
