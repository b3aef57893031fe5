package chat

import (
	"testing"
)

func testClient(id string) *Client {
	return &Client{
		ConnID: id,
		send:   make(chan []byte, sendQueueSize),
		closed: make(chan struct{}),
	}
}

func TestConnRegistryRegisterLookup(t *testing.T) {
	r := NewConnRegistry()
	c := testClient("c1")

	r.Register(1, c)
	got, ok := r.Lookup(1)
	if !ok || got != c {
		t.Fatalf("Lookup(1) = %v, %v; want c1, true", got, ok)
	}
}

func TestConnRegistryLastWriteWins(t *testing.T) {
	r := NewConnRegistry()
	old := testClient("old")
	fresh := testClient("fresh")

	r.Register(1, old)
	r.Register(1, fresh)

	got, ok := r.Lookup(1)
	if !ok || got != fresh {
		t.Fatalf("Lookup(1) after reconnect = %v, want the newer connection", got)
	}
}

func TestConnRegistryUnregister(t *testing.T) {
	r := NewConnRegistry()
	r.Register(1, testClient("c1"))
	r.Unregister(1)

	if _, ok := r.Lookup(1); ok {
		t.Error("Lookup(1) after Unregister = present, want absent")
	}
	// absent user is a no-op
	r.Unregister(99)
}

func TestConnRegistryReleaseGuarded(t *testing.T) {
	r := NewConnRegistry()
	old := testClient("old")
	fresh := testClient("fresh")

	r.Register(1, old)
	r.Register(1, fresh)

	// the superseded connection's disconnect must not evict its successor
	r.Release(1, old)
	got, ok := r.Lookup(1)
	if !ok || got != fresh {
		t.Fatalf("Lookup(1) after stale Release = %v, %v; want fresh, true", got, ok)
	}

	r.Release(1, fresh)
	if _, ok := r.Lookup(1); ok {
		t.Error("Lookup(1) after owning Release = present, want absent")
	}
}

func TestConnRegistrySendToUser(t *testing.T) {
	r := NewConnRegistry()
	c := testClient("c1")
	r.Register(1, c)

	if !r.SendToUser(1, []byte("hi")) {
		t.Fatal("SendToUser to open connection = false, want true")
	}
	select {
	case got := <-c.send:
		if string(got) != "hi" {
			t.Errorf("queued payload = %q, want %q", got, "hi")
		}
	default:
		t.Fatal("payload was not queued")
	}

	close(c.closed)
	if r.SendToUser(1, []byte("hi")) {
		t.Error("SendToUser to closed connection = true, want false")
	}
	if r.SendToUser(2, []byte("hi")) {
		t.Error("SendToUser to unknown user = true, want false")
	}
}
