package cache

import (
	"context"
	"sync"
	"time"
)

// item is the internal representation persisted by InMemoryStore.
type item struct {
	value     []byte
	expiresAt time.Time // zero when the item never expires
}

// InMemoryStore is a volatile Store implementation keeping entries in a
// process local map. It is safe for concurrent access and best suited for
// tests, examples or single-process deployments; use the redis subpackage to
// share entries across processes. Expired items are dropped lazily on read.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items: make(map[string]item),
		now:   time.Now,
	}
}

// Get implements Store.
func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !it.expiresAt.IsZero() && s.now().After(it.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have replaced it.
		if cur, ok := s.items[key]; ok && !cur.expiresAt.IsZero() && s.now().After(cur.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	value := make([]byte, len(it.value))
	copy(value, it.value)
	return value, nil
}

// Set implements Store. A ttl of zero stores the value without expiry.
func (s *InMemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.items[key] = item{value: stored, expiresAt: expiresAt}
	s.mu.Unlock()

	return nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()

	return nil
}

// Len returns the number of stored items, including not yet reaped expired ones.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
