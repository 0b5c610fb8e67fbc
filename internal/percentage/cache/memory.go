package cache

import (
	"context"
	"sync"
	"time"

	"calculation/pkg/platform/sentinel"
)

// InMemoryStore is a process-local CacheStore. Expired entries are treated as
// absent on read and removed lazily.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   func() time.Time
}

type entry struct {
	value     string
	expiresAt time.Time
}

type MemoryOption func(*InMemoryStore)

// WithClock overrides time.Now, for tests.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		s.clock = clock
	}
}

func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[string]entry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores value under key until ttl elapses. Last writer wins.
func (s *InMemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := s.clock()

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", sentinel.ErrNotFound
	}
	if !now.Before(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return "", sentinel.ErrNotFound
	}
	return e.value, nil
}
