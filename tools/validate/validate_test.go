package validate

import (
	"strings"
	"testing"
)

func TestChatKey(t *testing.T) {
	valid := []string{"#a1", "#team", "#general.chat", "#" + strings.Repeat("x", 29)}
	for _, key := range valid {
		if err := ChatKey(key); err != nil {
			t.Errorf("ChatKey(%q) = %v, want nil", key, err)
		}
	}
	invalid := []string{"", "#", "team", "#про", "#has space", "#semi;colon", "#" + strings.Repeat("x", 30)}
	for _, key := range invalid {
		if err := ChatKey(key); err == nil {
			t.Errorf("ChatKey(%q) = nil, want error", key)
		}
	}
}

func TestNickname(t *testing.T) {
	valid := []string{"al", "alice", "Алиса", "a.b_c-d", strings.Repeat("n", 20)}
	for _, n := range valid {
		if err := Nickname(n); err != nil {
			t.Errorf("Nickname(%q) = %v, want nil", n, err)
		}
	}
	invalid := []string{"", "a", strings.Repeat("n", 21), "bad<name>", "semi;colon"}
	for _, n := range invalid {
		if err := Nickname(n); err == nil {
			t.Errorf("Nickname(%q) = nil, want error", n)
		}
	}
}

func TestEmail(t *testing.T) {
	if err := Email("a@b.co"); err != nil {
		t.Errorf("Email(a@b.co) = %v", err)
	}
	for _, e := range []string{"", "nope", "a@b", "a b@c.d", strings.Repeat("x", 250) + "@b.co"} {
		if err := Email(e); err == nil {
			t.Errorf("Email(%q) = nil, want error", e)
		}
	}
}

func TestPassword(t *testing.T) {
	if err := Password("secret"); err != nil {
		t.Errorf("Password(secret) = %v", err)
	}
	for _, p := range []string{"", "short", strings.Repeat("p", 73)} {
		if err := Password(p); err == nil {
			t.Errorf("Password(%q) = nil, want error", p)
		}
	}
}

func TestMessageContent(t *testing.T) {
	if err := MessageContent(""); err != nil {
		t.Errorf("empty content should be allowed: %v", err)
	}
	if err := MessageContent(strings.Repeat("m", 5000)); err != nil {
		t.Errorf("5000 chars should be allowed: %v", err)
	}
	if err := MessageContent(strings.Repeat("m", 5001)); err == nil {
		t.Error("5001 chars should be rejected")
	}
}

func TestFileChecks(t *testing.T) {
	if err := FileName("report.pdf"); err != nil {
		t.Errorf("FileName(report.pdf) = %v", err)
	}
	for _, name := range []string{"", "a/b.txt", "a?.txt", strings.Repeat("f", 256)} {
		if err := FileName(name); err == nil {
			t.Errorf("FileName(%q) = nil, want error", name)
		}
	}
	if err := FileType("image/png"); err != nil {
		t.Errorf("FileType(image/png) = %v", err)
	}
	if err := FileType("application/x-msdownload"); err == nil {
		t.Error("executable mime should be rejected")
	}
}

func TestMessageTTL(t *testing.T) {
	ttl, err := MessageTTL("30")
	if err != nil || ttl != 30 {
		t.Fatalf("MessageTTL(30) = %d, %v", ttl, err)
	}
	if _, err := MessageTTL("0"); err != nil {
		t.Errorf("MessageTTL(0) = %v, want nil", err)
	}
	for _, raw := range []string{"", "abc", "-1", "366"} {
		if _, err := MessageTTL(raw); err == nil {
			t.Errorf("MessageTTL(%q) = nil, want error", raw)
		}
	}
}
