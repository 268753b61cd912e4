package memory

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/yndnr/dblite-go/internal/core/domain"
)

// Store is the single shared mutable resource of the server.
type Store struct {
	mu   sync.Mutex
	data map[string]*domain.Entry

	now func() time.Time

	// expired counts keys removed because their expiry passed.
	expired atomic.Uint64
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]*domain.Entry),
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// lookup returns the live entry for key, removing it first if expired.
// Caller must hold s.mu.
func (s *Store) lookup(key string, now time.Time) (*domain.Entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if e.Expired(now) {
		delete(s.data, key)
		s.expired.Add(1)
		return nil, false
	}
	return e, true
}

// lookupKind is lookup plus a type check. A missing key is not an error.
// Caller must hold s.mu.
func (s *Store) lookupKind(key string, kind domain.Kind) (*domain.Entry, bool, error) {
	e, ok := s.lookup(key, s.now())
	if !ok {
		return nil, false, nil
	}
	if e.Value.Kind != kind {
		return nil, false, domain.ErrWrongType
	}
	return e, true, nil
}

// Set stores a string value, replacing any previous value and expiry.
func (s *Store) Set(_ context.Context, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &domain.Entry{Value: domain.NewString(value)}
}

// Get returns the string stored at key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok, err := s.lookupKind(key, domain.KindString)
	if err != nil || !ok {
		return "", false, err
	}
	return e.Value.Str, true, nil
}

// Delete removes key and reports how many keys were removed.
func (s *Store) Delete(_ context.Context, key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(key, s.now()); !ok {
		return 0
	}
	delete(s.data, key)
	return 1
}

// Exists reports whether a live entry exists at key.
func (s *Store) Exists(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookup(key, s.now())
	return ok
}

// Type returns the kind stored at key.
func (s *Store) Type(_ context.Context, key string) (domain.Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key, s.now())
	if !ok {
		return 0, false
	}
	return e.Value.Kind, true
}

// LPush prepends values one at a time, so the last argument ends up at the
// front. It returns the resulting list length.
func (s *Store) LPush(_ context.Context, key string, values ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok, err := s.lookupKind(key, domain.KindList)
	if err != nil {
		return 0, err
	}
	if !ok {
		e = &domain.Entry{Value: domain.NewList()}
		s.data[key] = e
	}

	front := slices.Clone(values)
	slices.Reverse(front)
	e.Value.List = append(front, e.Value.List...)

	return len(e.Value.List), nil
}

// LPop removes and returns the front element of the list at key.
// The key is deleted once the list becomes empty.
func (s *Store) LPop(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok, err := s.lookupKind(key, domain.KindList)
	if err != nil || !ok {
		return "", false, err
	}
	if len(e.Value.List) == 0 {
		delete(s.data, key)
		return "", false, nil
	}

	head := e.Value.List[0]
	e.Value.List[0] = ""
	e.Value.List = e.Value.List[1:]
	if len(e.Value.List) == 0 {
		delete(s.data, key)
	}
	return head, true, nil
}

// HSet sets field in the hash at key. It reports whether the field is new.
func (s *Store) HSet(_ context.Context, key, field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok, err := s.lookupKind(key, domain.KindHash)
	if err != nil {
		return false, err
	}
	if !ok {
		e = &domain.Entry{Value: domain.NewHash()}
		s.data[key] = e
	}

	_, existed := e.Value.Hash[field]
	e.Value.Hash[field] = value
	return !existed, nil
}

// HGet returns field from the hash at key.
func (s *Store) HGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok, err := s.lookupKind(key, domain.KindHash)
	if err != nil || !ok {
		return "", false, err
	}
	v, ok := e.Value.Hash[field]
	return v, ok, nil
}

// SAdd adds members to the set at key and returns how many were new.
func (s *Store) SAdd(_ context.Context, key string, members ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok, err := s.lookupKind(key, domain.KindSet)
	if err != nil {
		return 0, err
	}
	if !ok {
		e = &domain.Entry{Value: domain.NewSet()}
		s.data[key] = e
	}

	added := 0
	for _, m := range members {
		if _, dup := e.Value.Set[m]; dup {
			continue
		}
		e.Value.Set[m] = struct{}{}
		added++
	}
	return added, nil
}

// SMembers returns the members of the set at key in sorted order.
// A missing key yields an empty slice.
func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok, err := s.lookupKind(key, domain.KindSet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{}, nil
	}
	members := lo.Keys(e.Value.Set)
	slices.Sort(members)
	return members, nil
}

// Expire sets the expiry of a live key to now+ttl. A non-positive ttl
// removes the key immediately. It reports whether the key existed.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.lookup(key, now)
	if !ok {
		return false
	}
	if ttl <= 0 {
		delete(s.data, key)
		s.expired.Add(1)
		return true
	}
	e.ExpireAt = now.Add(ttl)
	return true
}

// TTL returns the remaining time to live of key. The second result is
// false if the key does not exist; a key without expiry returns -1.
func (s *Store) TTL(_ context.Context, key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.lookup(key, now)
	if !ok {
		return 0, false
	}
	return e.TTL(now), true
}

// FlushAll removes every key.
func (s *Store) FlushAll(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*domain.Entry)
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	return lo.CountBy(lo.Values(s.data), func(e *domain.Entry) bool {
		return !e.Expired(now)
	})
}

// ExpiredKeys returns the number of keys removed by expiry so far.
func (s *Store) ExpiredKeys() uint64 {
	return s.expired.Load()
}

// SweepExpired removes all expired entries and returns how many were
// removed.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expiredKeys := lo.FilterMap(lo.Entries(s.data), func(kv lo.Entry[string, *domain.Entry], _ int) (string, bool) {
		return kv.Key, kv.Value.Expired(now)
	})
	for _, key := range expiredKeys {
		delete(s.data, key)
	}
	s.expired.Add(uint64(len(expiredKeys)))

	return len(expiredKeys)
}

// Dump calls fn with every live entry while holding the store lock.
// Expired entries are purged first. fn must not retain the map or mutate
// the entries.
func (s *Store) Dump(fn func(now time.Time, entries map[string]*domain.Entry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.data {
		if e.Expired(now) {
			delete(s.data, key)
			s.expired.Add(1)
		}
	}
	return fn(now, s.data)
}

// Load replaces the whole store with the entries returned by fn. fn runs
// under the store lock. If fn fails the store is left unmodified.
func (s *Store) Load(fn func(now time.Time) (map[string]*domain.Entry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := fn(s.now())
	if err != nil {
		return err
	}
	if entries == nil {
		entries = make(map[string]*domain.Entry)
	}
	s.data = entries
	return nil
}
