package service

//go:generate mockgen -source=../ports/ports.go -destination=../ports/mocks/mocks.go -package=mocks Source,CacheStore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"calculation/internal/percentage/metrics"
	"calculation/internal/percentage/ports/mocks"
	dErrors "calculation/pkg/domain-errors"
	"calculation/pkg/platform/sentinel"
)

// =============================================================================
// Percentage Resolver Test Suite
// =============================================================================
// The resolver owns retry and fallback. Tests pin the attempt count, the cache
// write with TTL, and which failures surface as Unavailable.

type ResolverSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	source  *mocks.MockSource
	cache   *mocks.MockCacheStore
	metrics *metrics.Metrics
	logs    *bytes.Buffer
	service *Service
	ctx     context.Context
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockSource(s.ctrl)
	s.cache = mocks.NewMockCacheStore(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logs = &bytes.Buffer{}
	s.ctx = context.Background()

	svc, err := New(s.source, s.cache,
		WithLogger(slog.New(slog.NewTextHandler(s.logs, nil))),
		WithMetrics(s.metrics),
		WithTTL(30*time.Minute),
		WithMaxAttempts(3),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ResolverSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ResolverSuite) TestNew() {
	s.Run("nil source returns error", func() {
		_, err := New(nil, s.cache)
		s.ErrorContains(err, "percentage source is required")
	})

	s.Run("nil cache returns error", func() {
		_, err := New(s.source, nil)
		s.ErrorContains(err, "cache store is required")
	})

	s.Run("zero attempts returns error", func() {
		_, err := New(s.source, s.cache, WithMaxAttempts(0))
		s.Error(err)
	})

	s.Run("defaults", func() {
		svc, err := New(s.source, s.cache)
		s.Require().NoError(err)
		s.Equal(3, svc.maxAttempts)
		s.Equal(30*time.Minute, svc.ttl)
	})
}

func (s *ResolverSuite) TestUpstreamSuccessWritesCache() {
	s.source.EXPECT().Percentage(gomock.Any()).Return(decimal.NewFromInt(10), nil).Times(1)
	s.cache.EXPECT().Set(gomock.Any(), CacheKey, "10", 30*time.Minute).Return(nil).Times(1)

	got, err := s.service.Resolve(s.ctx)
	s.Require().NoError(err)
	s.Equal("10", got.String())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.UpstreamAttempts))
}

func (s *ResolverSuite) TestSucceedsOnLaterAttempt() {
	gomock.InOrder(
		s.source.EXPECT().Percentage(gomock.Any()).Return(decimal.Zero, errors.New("timeout")),
		s.source.EXPECT().Percentage(gomock.Any()).Return(decimal.RequireFromString("12.5"), nil),
	)
	s.cache.EXPECT().Set(gomock.Any(), CacheKey, "12.5", 30*time.Minute).Return(nil)

	got, err := s.service.Resolve(s.ctx)
	s.Require().NoError(err)
	s.Equal("12.5", got.String())
	s.Equal(2.0, testutil.ToFloat64(s.metrics.UpstreamAttempts))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.UpstreamFailures))
}

func (s *ResolverSuite) TestFallbackAfterExactlyThreeAttempts() {
	s.source.EXPECT().Percentage(gomock.Any()).Return(decimal.Zero, errors.New("connection refused")).Times(3)
	s.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.cache.EXPECT().Get(gomock.Any(), CacheKey).Return("10", nil).Times(1)

	got, err := s.service.Resolve(s.ctx)
	s.Require().NoError(err)
	s.Equal("10", got.String())
	s.Equal(3.0, testutil.ToFloat64(s.metrics.UpstreamAttempts))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheFallbacks))
	s.Contains(s.logs.String(), "percentage upstream attempt failed")
}

func (s *ResolverSuite) TestUnavailableWithoutCachedValue() {
	s.source.EXPECT().Percentage(gomock.Any()).Return(decimal.Zero, errors.New("connection refused")).Times(3)
	s.cache.EXPECT().Get(gomock.Any(), CacheKey).Return("", sentinel.ErrNotFound).Times(1)

	_, err := s.service.Resolve(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	de, ok := dErrors.As(err)
	s.Require().True(ok)
	s.Equal(UnavailableMessage, de.Message)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Unavailable))
}

func (s *ResolverSuite) TestCacheReadErrorIsUnavailable() {
	s.source.EXPECT().Percentage(gomock.Any()).Return(decimal.Zero, errors.New("boom")).Times(3)
	s.cache.EXPECT().Get(gomock.Any(), CacheKey).Return("", errors.New("redis down"))

	_, err := s.service.Resolve(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Contains(s.logs.String(), "failed to read cached percentage")
}

func (s *ResolverSuite) TestCorruptCachedValueIsUnavailable() {
	s.source.EXPECT().Percentage(gomock.Any()).Return(decimal.Zero, errors.New("boom")).Times(3)
	s.cache.EXPECT().Get(gomock.Any(), CacheKey).Return("ten", nil)

	_, err := s.service.Resolve(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ResolverSuite) TestCacheWriteFailureStillReturnsValue() {
	s.source.EXPECT().Percentage(gomock.Any()).Return(decimal.NewFromInt(10), nil)
	s.cache.EXPECT().Set(gomock.Any(), CacheKey, "10", 30*time.Minute).Return(errors.New("redis down"))

	got, err := s.service.Resolve(s.ctx)
	s.Require().NoError(err)
	s.Equal("10", got.String())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheWriteFailures))
	s.Contains(s.logs.String(), "failed to cache percentage")
}

func (s *ResolverSuite) TestBackOffBetweenAttempts() {
	var slept []time.Duration
	svc, err := New(s.source, s.cache,
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(50 * time.Millisecond) }),
	)
	s.Require().NoError(err)
	svc.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	s.source.EXPECT().Percentage(gomock.Any()).Return(decimal.Zero, errors.New("boom")).Times(3)
	s.cache.EXPECT().Get(gomock.Any(), CacheKey).Return("10", nil)

	_, err = svc.Resolve(s.ctx)
	s.Require().NoError(err)
	s.Equal([]time.Duration{50 * time.Millisecond, 50 * time.Millisecond}, slept)
}

func (s *ResolverSuite) TestCanceledWaitStopsRetrying() {
	svc, err := New(s.source, s.cache,
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
	s.Require().NoError(err)
	svc.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	s.source.EXPECT().Percentage(gomock.Any()).Return(decimal.Zero, errors.New("boom")).Times(1)
	s.cache.EXPECT().Get(gomock.Any(), CacheKey).Return("", sentinel.ErrNotFound)

	_, err = svc.Resolve(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ResolverSuite) TestAttemptTimeoutApplied() {
	svc, err := New(s.source, s.cache, WithTimeouts(10*time.Millisecond, time.Second))
	s.Require().NoError(err)

	s.source.EXPECT().Percentage(gomock.Any()).DoAndReturn(func(ctx context.Context) (decimal.Decimal, error) {
		deadline, ok := ctx.Deadline()
		s.True(ok)
		s.WithinDuration(time.Now().Add(10*time.Millisecond), deadline, 10*time.Millisecond)
		return decimal.NewFromInt(5), nil
	})
	s.cache.EXPECT().Set(gomock.Any(), CacheKey, "5", gomock.Any()).Return(nil)

	_, err = svc.Resolve(s.ctx)
	s.Require().NoError(err)
}
