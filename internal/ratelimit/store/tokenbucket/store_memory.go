package tokenbucket

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"calculation/internal/ratelimit/models"
)

// InMemoryTokenBucketStore implements BucketStore with one token bucket per key.
// A bucket holds up to limit tokens and refills at limit per window, so the
// long-run rate matches the fixed window policy while smoothing bursts at
// window boundaries.
type InMemoryTokenBucketStore struct {
	mu       sync.Mutex
	limiters map[string]*bucket
	clock    func() time.Time
}

type bucket struct {
	limiter *rate.Limiter
	limit   int
	window  time.Duration
}

// Option configures the store.
type Option func(*InMemoryTokenBucketStore)

// WithClock overrides time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemoryTokenBucketStore) {
		s.clock = clock
	}
}

// New creates a new in-memory token bucket store.
func New(opts ...Option) *InMemoryTokenBucketStore {
	s := &InMemoryTokenBucketStore{
		limiters: make(map[string]*bucket),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow takes one token from the key's bucket if one is available.
func (s *InMemoryTokenBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	b := s.getOrCreateBucket(key, limit, window)
	interval := window / time.Duration(limit)

	if b.limiter.AllowN(now, 1) {
		tokens := b.limiter.TokensAt(now)
		missing := float64(limit) - tokens
		return &models.RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: int(math.Floor(tokens)),
			ResetAt:   now.Add(time.Duration(missing * float64(interval))),
		}, nil
	}

	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)

	return &models.RateLimitResult{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    now.Add(delay),
		RetryAfter: retryAfterSeconds(delay),
	}, nil
}

// getOrCreateBucket must be called while holding s.mu.
func (s *InMemoryTokenBucketStore) getOrCreateBucket(key string, limit int, window time.Duration) *bucket {
	if b := s.limiters[key]; b != nil && b.limit == limit && b.window == window {
		return b
	}
	// a fresh limiter starts full
	lim := rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
	b := &bucket{limiter: lim, limit: limit, window: window}
	s.limiters[key] = b
	return b
}

func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
