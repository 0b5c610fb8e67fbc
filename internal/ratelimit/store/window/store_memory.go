package window

import (
	"context"
	"sync"
	"time"

	"calculation/internal/ratelimit/models"
)

// InMemoryWindowStore implements BucketStore with fixed, clock-aligned windows.
// A window for length W starts at now.Truncate(W); a request landing exactly
// on a boundary belongs to the new window. Limits are local to the process.
type InMemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	clock   func() time.Time
}

type fixedWindow struct {
	start  time.Time
	length time.Duration
	count  int
}

// Option configures the store.
type Option func(*InMemoryWindowStore)

// WithClock overrides time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemoryWindowStore) {
		s.clock = clock
	}
}

// New creates a new in-memory fixed window store.
func New(opts ...Option) *InMemoryWindowStore {
	s := &InMemoryWindowStore{
		windows: make(map[string]*fixedWindow),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow counts the request against the current window when capacity remains.
// Rollover and increment happen under one lock, so concurrent callers never
// observe a half-reset window or push the count past the limit.
func (s *InMemoryWindowStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	start := now.Truncate(window)
	resetAt := start.Add(window)

	fw := s.windows[key]
	if fw == nil {
		fw = &fixedWindow{start: start, length: window}
		s.windows[key] = fw
	}
	if !fw.start.Equal(start) || fw.length != window {
		fw.start = start
		fw.length = window
		fw.count = 0
	}

	if fw.count >= limit {
		return &models.RateLimitResult{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(resetAt.Sub(now)),
		}, nil
	}

	fw.count++
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - fw.count,
		ResetAt:   resetAt,
	}, nil
}

func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
