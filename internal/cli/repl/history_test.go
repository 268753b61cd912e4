package repl

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHistory_AddAndGet(t *testing.T) {
	h := NewHistory("")
	h.Add("first")
	h.Add("second")
	h.Add("second")

	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}
	if h.Get(0) != "second" || h.Get(1) != "first" {
		t.Errorf("Get order wrong: %q %q", h.Get(0), h.Get(1))
	}
	if h.Get(2) != "" || h.Get(-1) != "" {
		t.Error("out of range Get should return empty")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory("")
	h.maxSize = 3
	for _, c := range []string{"a", "b", "c", "d"} {
		h.Add(c)
	}
	if h.Len() != 3 || h.Get(2) != "b" {
		t.Errorf("oldest entry not evicted: len=%d oldest=%q", h.Len(), h.Get(2))
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "history")
	h := NewHistory(path)
	h.Add("set k v")
	h.Add("get k")
	if err := h.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", st.Mode().Perm())
	}

	loaded := NewHistory(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 2 || loaded.Get(0) != "get k" {
		t.Errorf("loaded %d entries, newest %q", loaded.Len(), loaded.Get(0))
	}
}

func TestHistory_MissingFileAndMemoryOnly(t *testing.T) {
	if err := NewHistory(filepath.Join(t.TempDir(), "none")).Load(); err != nil {
		t.Errorf("Load of missing file: %v", err)
	}
	h := NewHistory("")
	h.Add("x")
	if err := h.Save(); err != nil {
		t.Errorf("memory-only Save: %v", err)
	}
	if err := h.Load(); err != nil {
		t.Errorf("memory-only Load: %v", err)
	}
}
