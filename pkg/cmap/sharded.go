package cmap

import (
	"iter"
	"math/rand/v2"
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is used by New and for invalid shard counts.
const DefaultShardCount = 16

// Map is a string-keyed map split into independently locked shards.
type Map[K ~string, V any] struct {
	shards []shard[K, V]
	mask   uint64
	seed   uint32
}

type shard[K ~string, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a Map with DefaultShardCount shards.
func New[K ~string, V any]() *Map[K, V] {
	return NewWithShards[K, V](DefaultShardCount)
}

// NewWithShards creates a Map with n shards. n must be a power of two;
// anything else means DefaultShardCount.
func NewWithShards[K ~string, V any](n int) *Map[K, V] {
	if n <= 0 || n&(n-1) != 0 {
		n = DefaultShardCount
	}
	m := &Map[K, V]{
		shards: make([]shard[K, V], n),
		mask:   uint64(n - 1),
		seed:   rand.Uint32(),
	}
	for i := range m.shards {
		m.shards[i].items = make(map[K]V)
	}
	return m
}

func (m *Map[K, V]) shard(key K) *shard[K, V] {
	return &m.shards[murmur3.Sum64WithSeed([]byte(key), m.seed)&m.mask]
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shard(key)
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	return v, ok
}

// Set stores value under key and reports whether the key was new.
func (m *Map[K, V]) Set(key K, value V) bool {
	s := m.shard(key)
	s.mu.Lock()
	_, existed := s.items[key]
	s.items[key] = value
	s.mu.Unlock()
	return !existed
}

// Pop removes key and returns the value it held.
func (m *Map[K, V]) Pop(key K) (V, bool) {
	s := m.shard(key)
	s.mu.Lock()
	v, ok := s.items[key]
	delete(s.items, key)
	s.mu.Unlock()
	return v, ok
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// All iterates over a copy of each shard taken in turn, so the loop body
// may call back into the Map. Entries added or removed in shards not yet
// visited may or may not be seen.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := range m.shards {
			s := &m.shards[i]
			s.mu.RLock()
			keys := make([]K, 0, len(s.items))
			vals := make([]V, 0, len(s.items))
			for k, v := range s.items {
				keys = append(keys, k)
				vals = append(vals, v)
			}
			s.mu.RUnlock()

			for j := range keys {
				if !yield(keys[j], vals[j]) {
					return
				}
			}
		}
	}
}
