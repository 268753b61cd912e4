package domain

import (
	"maps"
	"slices"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds. The numeric values are part of the snapshot format.
const (
	KindString Kind = iota + 1
	KindList
	KindHash
	KindSet
)

// String returns the lowercase type name reported to clients.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindHash:
		return "hash"
	case KindSet:
		return "set"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= KindString && k <= KindSet
}

// Value is a closed tagged variant. Only the field matching Kind is used.
//
// List is stored front to back: List[0] is the element LPOP returns.
type Value struct {
	Kind Kind
	Str  string
	List []string
	Hash map[string]string
	Set  map[string]struct{}
}

// NewString creates a string value.
func NewString(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// NewList creates an empty list value.
func NewList() Value {
	return Value{Kind: KindList}
}

// NewHash creates an empty hash value.
func NewHash() Value {
	return Value{Kind: KindHash, Hash: make(map[string]string)}
}

// NewSet creates an empty set value.
func NewSet() Value {
	return Value{Kind: KindSet, Set: make(map[string]struct{})}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := Value{Kind: v.Kind, Str: v.Str}
	if v.List != nil {
		out.List = slices.Clone(v.List)
	}
	if v.Hash != nil {
		out.Hash = maps.Clone(v.Hash)
	}
	if v.Set != nil {
		out.Set = maps.Clone(v.Set)
	}
	return out
}

// Len returns the number of elements in a collection value, or the byte
// length of a string.
func (v Value) Len() int {
	switch v.Kind {
	case KindString:
		return len(v.Str)
	case KindList:
		return len(v.List)
	case KindHash:
		return len(v.Hash)
	case KindSet:
		return len(v.Set)
	}
	return 0
}

// Entry is one slot of the store.
type Entry struct {
	Value Value

	// ExpireAt is the absolute expiry instant. Zero means no expiry.
	ExpireAt time.Time
}

// HasExpiry reports whether the entry carries an expiry instant.
func (e *Entry) HasExpiry() bool {
	return !e.ExpireAt.IsZero()
}

// Expired reports whether the entry is expired at now.
// An entry whose expiry equals now is already expired.
func (e *Entry) Expired(now time.Time) bool {
	return e.HasExpiry() && !e.ExpireAt.After(now)
}

// TTL returns the remaining time to live at now, or -1 if the entry has
// no expiry.
func (e *Entry) TTL(now time.Time) time.Duration {
	if !e.HasExpiry() {
		return -1
	}
	return e.ExpireAt.Sub(now)
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	return &Entry{Value: e.Value.Clone(), ExpireAt: e.ExpireAt}
}
