package kv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestHandleRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	h, err := s.Open("uploader")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.GetString("url"); !errors.Is(err, ErrNotFound) {
		t.Errorf("fresh key: err = %v, want ErrNotFound", err)
	}
	h.SetString("url", "http://a")
	h.SetInt32("interval", 5)
	if err := h.Commit(); err != nil {
		t.Fatal(err)
	}
	h.Close()

	h2, _ := s.Open("uploader")
	defer h2.Close()
	if v, err := h2.GetString("url"); err != nil || v != "http://a" {
		t.Errorf("url = %q, %v", v, err)
	}
	if v, err := h2.GetInt32("interval"); err != nil || v != 5 {
		t.Errorf("interval = %d, %v", v, err)
	}
	if _, err := h2.GetInt32("url"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("type mismatch: err = %v", err)
	}
}

func TestUncommittedWritesAreDiscarded(t *testing.T) {
	s := NewMemoryStore()
	h, _ := s.Open("ns")
	h.SetString("k", "v")
	h.Close()

	h2, _ := s.Open("ns")
	if _, err := h2.GetString("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("uncommitted write leaked: %v", err)
	}
	if err := h.SetString("k", "v"); !errors.Is(err, ErrClosed) {
		t.Errorf("write after close: %v", err)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	a, _ := s.Open("a")
	a.SetString("k", "from a")
	a.Commit()

	b, _ := s.Open("b")
	if _, err := b.GetString("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("namespace b sees a's key: %v", err)
	}
}

func TestFailedCommitKeepsPreviousValues(t *testing.T) {
	s := NewMemoryStore()
	h, _ := s.Open("ns")
	h.SetString("k", "old")
	if err := h.Commit(); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("flash worn out")
	s.FailCommits(boom)
	h.SetString("k", "new")
	if err := h.Commit(); !errors.Is(err, boom) {
		t.Fatalf("Commit = %v, want %v", err, boom)
	}

	s.FailCommits(nil)
	fresh, _ := s.Open("ns")
	if v, _ := fresh.GetString("k"); v != "old" {
		t.Errorf("after failed commit k = %q, want old", v)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kv.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	h, _ := s.Open("uploader")
	h.SetString("url", "https://ex.test/up")
	h.SetInt32("interval", 30)
	if err := h.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	s2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	h2, _ := s2.Open("uploader")
	if v, _ := h2.GetString("url"); v != "https://ex.test/up" {
		t.Errorf("url = %q", v)
	}
	if v, _ := h2.GetInt32("interval"); v != 30 {
		t.Errorf("interval = %d", v)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestFileStoreSetsAsideCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	h, err := s.Open("uploader")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.GetString("url"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetString on fresh store = %v", err)
	}
	if data, err := os.ReadFile(path + ".corrupt"); err != nil || string(data) != "{not json" {
		t.Errorf("corrupt copy = %q, %v", data, err)
	}

	if err := h.SetString("url", "http://a"); err != nil {
		t.Fatal(err)
	}
	if err := h.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	h.Close()

	s2, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	h2, _ := s2.Open("uploader")
	if v, _ := h2.GetString("url"); v != "http://a" {
		t.Errorf("url after rewrite = %q", v)
	}
}
