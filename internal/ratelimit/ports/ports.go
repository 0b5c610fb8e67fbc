package ports

import (
	"context"
	"time"

	"calculation/internal/ratelimit/models"
)

// BucketStore holds admission counters. Keys are simple strings; validation
// happens in the service. Implementations must make check-and-increment atomic.
type BucketStore interface {
	// Allow checks if a request is allowed and, if so, counts it.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}
