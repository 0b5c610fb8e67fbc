package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"calculation/internal/ratelimit/metrics"
	"calculation/internal/ratelimit/models"
	"calculation/internal/ratelimit/ports"
	dErrors "calculation/pkg/domain-errors"
)

// BucketStore is re-exported so callers wiring the service need not import ports.
type BucketStore = ports.BucketStore

// Service is the admission controller: a fixed capacity per window for each
// named limiter. It never queues or waits; a request is admitted or rejected
// immediately.
type Service struct {
	buckets BucketStore
	limits  map[models.LimiterName]models.Limit
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLimit registers a limiter. Registering the same name twice keeps the last limit.
func WithLimit(name models.LimiterName, limit models.Limit) Option {
	return func(s *Service) {
		s.limits[name] = limit
	}
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}
	s := &Service{
		buckets: buckets,
		limits:  make(map[models.LimiterName]models.Limit),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for name, limit := range s.limits {
		if err := limit.Validate(); err != nil {
			return nil, fmt.Errorf("limiter %s: %w", name, err)
		}
	}
	return s, nil
}

// Check counts one request against the named limiter and returns the outcome
// with the values needed for rate limit headers.
func (s *Service) Check(ctx context.Context, name models.LimiterName) (*models.RateLimitResult, error) {
	limit, ok := s.limits[name]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("unknown limiter %q", name))
	}

	result, err := s.buckets.Allow(ctx, models.NewRateLimitKey(name), limit.Capacity, limit.Window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit check failed")
	}

	if result.Allowed {
		s.metrics.IncAdmitted(string(name))
	} else {
		s.metrics.IncRejected(string(name))
		s.logger.InfoContext(ctx, "request rejected by admission control",
			"limiter", name,
			"limit", result.Limit,
			"retry_after", result.RetryAfter,
		)
	}
	return result, nil
}

// Admit reports whether one more request fits in the named limiter's current
// window. Store failures reject the request.
func (s *Service) Admit(name models.LimiterName) bool {
	result, err := s.Check(context.Background(), name)
	if err != nil {
		s.logger.Error("admission check failed", "limiter", name, "error", err)
		return false
	}
	return result.Allowed
}
