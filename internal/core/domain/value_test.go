package domain

import (
	"testing"
	"time"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindString, "string"},
		{KindList, "list"},
		{KindHash, "hash"},
		{KindSet, "set"},
		{Kind(0), "unknown"},
		{Kind(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
		if tt.kind.Valid() != (tt.want != "unknown") {
			t.Errorf("Kind(%d).Valid() mismatch", tt.kind)
		}
	}
}

func TestValue_CloneIsDeep(t *testing.T) {
	list := Value{Kind: KindList, List: []string{"a", "b"}}
	c := list.Clone()
	c.List[0] = "z"
	if list.List[0] != "a" {
		t.Error("Clone should not share list storage")
	}

	h := NewHash()
	h.Hash["f"] = "1"
	hc := h.Clone()
	hc.Hash["f"] = "2"
	if h.Hash["f"] != "1" {
		t.Error("Clone should not share hash storage")
	}

	s := NewSet()
	s.Set["x"] = struct{}{}
	sc := s.Clone()
	delete(sc.Set, "x")
	if _, ok := s.Set["x"]; !ok {
		t.Error("Clone should not share set storage")
	}
}

func TestValue_Len(t *testing.T) {
	if got := NewString("abc").Len(); got != 3 {
		t.Errorf("string Len = %d, want 3", got)
	}
	if got := (Value{Kind: KindList, List: []string{"a"}}).Len(); got != 1 {
		t.Errorf("list Len = %d, want 1", got)
	}
	if got := NewHash().Len(); got != 0 {
		t.Errorf("hash Len = %d, want 0", got)
	}
}

func TestEntry_Expired(t *testing.T) {
	now := time.Unix(1000, 0)

	tests := []struct {
		name     string
		expireAt time.Time
		want     bool
	}{
		{"no expiry", time.Time{}, false},
		{"future", now.Add(time.Second), false},
		{"exactly now", now, true},
		{"past", now.Add(-time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Entry{Value: NewString("v"), ExpireAt: tt.expireAt}
			if got := e.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	now := time.Unix(1000, 0)
	e := &Entry{Value: NewString("v")}
	if e.TTL(now) != -1 {
		t.Errorf("TTL without expiry = %v, want -1", e.TTL(now))
	}
	e.ExpireAt = now.Add(5 * time.Second)
	if e.TTL(now) != 5*time.Second {
		t.Errorf("TTL = %v, want 5s", e.TTL(now))
	}
}
