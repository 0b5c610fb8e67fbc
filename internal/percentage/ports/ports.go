// Package ports defines the dependencies of the percentage resolver.
package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Source fetches the current percentage from its origin. Every error is
// treated as transient by the resolver.
type Source interface {
	Percentage(ctx context.Context) (decimal.Decimal, error)
}

// CacheStore is a string key/value store with per-entry expiry enforced by
// the store. Get returns sentinel.ErrNotFound for absent or expired keys.
type CacheStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}
