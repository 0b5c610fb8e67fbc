package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"calculation/pkg/platform/sentinel"
)

// RedisStore is a CacheStore backed by Redis. Expiry is Redis' own key TTL.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces every key, e.g. "calc:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

func NewRedisStore(client redis.Cmdable, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	s := &RedisStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}
