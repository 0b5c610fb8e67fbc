// Package service resolves the current percentage with bounded retry against
// the upstream source and a time-bounded fallback to the last cached value.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"calculation/internal/percentage/metrics"
	"calculation/internal/percentage/ports"
	dErrors "calculation/pkg/domain-errors"
	"calculation/pkg/platform/sentinel"
	"calculation/pkg/requestcontext"
)

// CacheKey is the single global cache entry holding the last fetched percentage.
const CacheKey = "percentage"

// UnavailableMessage is shown to callers when no percentage can be resolved.
const UnavailableMessage = "percentage temporarily unavailable"

const (
	defaultMaxAttempts    = 3
	defaultTTL            = 30 * time.Minute
	defaultAttemptTimeout = 2 * time.Second
	defaultCacheTimeout   = 500 * time.Millisecond
)

type (
	Source     = ports.Source
	CacheStore = ports.CacheStore
)

// Service is the percentage resolver. It is safe for concurrent use; it holds
// no mutable state of its own.
type Service struct {
	source  Source
	cache   CacheStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	maxAttempts    int
	ttl            time.Duration
	attemptTimeout time.Duration
	cacheTimeout   time.Duration
	newBackOff     func() backoff.BackOff
	sleep          func(ctx context.Context, d time.Duration) error
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

// WithMaxAttempts sets the total number of upstream attempts per resolution.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		s.maxAttempts = n
	}
}

// WithTTL sets how long a fetched value stays usable as a fallback.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithTimeouts bounds each upstream attempt and each cache operation.
func WithTimeouts(attempt, cache time.Duration) Option {
	return func(s *Service) {
		s.attemptTimeout = attempt
		s.cacheTimeout = cache
	}
}

// WithExponentialBackOff waits between attempts, starting at initial and
// capped at max, with the library's default jitter.
func WithExponentialBackOff(initial, max time.Duration) Option {
	return func(s *Service) {
		s.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = max
			b.MaxElapsedTime = 0
			b.Reset()
			return b
		}
	}
}

// WithBackOff sets the delay schedule between attempts.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *Service) {
		s.newBackOff = newBackOff
	}
}

func New(source Source, cache CacheStore, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, errors.New("percentage source is required")
	}
	if cache == nil {
		return nil, errors.New("cache store is required")
	}
	s := &Service{
		source:         source,
		cache:          cache,
		logger:         slog.Default(),
		tracer:         otel.Tracer("calculation/internal/percentage"),
		maxAttempts:    defaultMaxAttempts,
		ttl:            defaultTTL,
		attemptTimeout: defaultAttemptTimeout,
		cacheTimeout:   defaultCacheTimeout,
		newBackOff:     func() backoff.BackOff { return &backoff.ZeroBackOff{} },
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", s.maxAttempts)
	}
	if s.ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", s.ttl)
	}
	return s, nil
}

// Resolve returns the current percentage.
//
// The upstream source is tried up to maxAttempts times in sequence. The first
// success is written to the cache and returned. When every attempt fails the
// cached value is returned if still present; otherwise the call fails with
// CodeUnavailable. Individual attempt failures are never surfaced.
func (s *Service) Resolve(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := s.tracer.Start(ctx, "percentage.Resolve")
	defer span.End()

	b := s.newBackOff()
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		attempts = attempt
		value, err := s.fetch(ctx)
		if err == nil {
			span.SetAttributes(
				attribute.Int("percentage.attempts", attempt),
				attribute.String("percentage.outcome", "upstream"),
			)
			s.metrics.ObserveAttempts(attempt)
			s.storeInCache(ctx, value)
			return value, nil
		}

		lastErr = err
		s.logger.WarnContext(ctx, "percentage upstream attempt failed",
			"attempt", attempt,
			"max_attempts", s.maxAttempts,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)

		if attempt == s.maxAttempts {
			break
		}
		delay := b.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		if err := s.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	s.metrics.ObserveAttempts(attempts)
	span.SetAttributes(attribute.Int("percentage.attempts", attempts))
	return s.fallback(ctx, span, lastErr)
}

func (s *Service) fetch(ctx context.Context) (decimal.Decimal, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	defer cancel()

	start := time.Now()
	value, err := s.source.Percentage(attemptCtx)
	s.metrics.ObserveUpstreamCall(time.Since(start).Seconds(), err != nil)
	return value, err
}

// storeInCache refreshes the fallback entry. A failed write is logged and
// counted; the fetched value is still returned to the caller.
func (s *Service) storeInCache(ctx context.Context, value decimal.Decimal) {
	cacheCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()

	if err := s.cache.Set(cacheCtx, CacheKey, value.String(), s.ttl); err != nil {
		s.metrics.IncCacheWriteFailure()
		s.logger.ErrorContext(ctx, "failed to cache percentage",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) fallback(ctx context.Context, span trace.Span, upstreamErr error) (decimal.Decimal, error) {
	cacheCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()

	raw, err := s.cache.Get(cacheCtx, CacheKey)
	if err == nil {
		value, parseErr := decimal.NewFromString(raw)
		if parseErr == nil {
			s.metrics.IncCacheFallback()
			span.SetAttributes(attribute.String("percentage.outcome", "cache"))
			s.logger.InfoContext(ctx, "serving cached percentage after upstream exhaustion",
				"request_id", requestcontext.RequestID(ctx),
			)
			return value, nil
		}
		err = fmt.Errorf("parse cached percentage %q: %w", raw, parseErr)
	}

	if !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to read cached percentage",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	s.metrics.IncUnavailable()
	span.SetAttributes(attribute.String("percentage.outcome", "unavailable"))
	span.SetStatus(codes.Error, UnavailableMessage)
	return decimal.Zero, dErrors.Wrap(errors.Join(upstreamErr, err), dErrors.CodeUnavailable, UnavailableMessage)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
