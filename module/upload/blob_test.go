package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndRemove(t *testing.T) {
	b, err := NewBlobs(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	url, err := b.Save(strings.NewReader("hello"), "text/plain; charset=utf-8", "note.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url, "/uploads/") {
		t.Fatalf("url = %q, want /uploads/ prefix", url)
	}

	data, err := os.ReadFile(filepath.Join(b.Dir(), strings.TrimPrefix(url, "/uploads/")))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("blob content = %q", data)
	}

	if err := b.Remove(url); err != nil {
		t.Fatal(err)
	}
	if err := b.Remove(url); err != nil {
		t.Fatalf("second remove should be a no-op, got %v", err)
	}
}

func TestRemoveRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBlobs(dir)
	if err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(dir, "..", "victim")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := b.Remove("/uploads/../victim"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside upload dir was removed: %v", err)
	}
}

func TestList(t *testing.T) {
	b, err := NewBlobs(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if urls, _ := b.List(); len(urls) != 0 {
		t.Fatalf("fresh dir listed %d blobs", len(urls))
	}
	url, err := b.Save(strings.NewReader("x"), "application/octet-stream", "raw")
	if err != nil {
		t.Fatal(err)
	}
	urls, err := b.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 || urls[0] != url {
		t.Fatalf("List() = %v, want [%s]", urls, url)
	}
}
