package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"calculation/internal/ratelimit/metrics"
	"calculation/internal/ratelimit/models"
	"calculation/internal/ratelimit/store/window"
	dErrors "calculation/pkg/domain-errors"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, errors.New("store down")
}

type ServiceSuite struct {
	suite.Suite
	now     time.Time
	service *Service
	metrics *metrics.Metrics
	logs    *bytes.Buffer
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logs = &bytes.Buffer{}

	store := window.New(window.WithClock(func() time.Time { return s.now }))
	svc, err := New(store,
		WithLogger(slog.New(slog.NewTextHandler(s.logs, nil))),
		WithMetrics(s.metrics),
		WithLimit(models.LimiterCalculation, models.Limit{Capacity: 3, Window: time.Minute}),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TestAdmit() {
	s.Run("fourth request in a window is rejected", func() {
		s.True(s.service.Admit(models.LimiterCalculation))
		s.True(s.service.Admit(models.LimiterCalculation))
		s.True(s.service.Admit(models.LimiterCalculation))
		s.False(s.service.Admit(models.LimiterCalculation))

		s.Equal(3.0, testutil.ToFloat64(s.metrics.Admitted.WithLabelValues("calculation")))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Rejected.WithLabelValues("calculation")))
		s.Contains(s.logs.String(), "request rejected by admission control")
	})

	s.Run("next window admits again", func() {
		s.now = s.now.Add(time.Minute)
		s.True(s.service.Admit(models.LimiterCalculation))
	})

	s.Run("unknown limiter is rejected", func() {
		s.False(s.service.Admit(models.LimiterName("other")))
	})
}

func (s *ServiceSuite) TestCheck() {
	result, err := s.service.Check(context.Background(), models.LimiterCalculation)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(3, result.Limit)
	s.Equal(2, result.Remaining)

	_, err = s.service.Check(context.Background(), models.LimiterName("other"))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestNew(t *testing.T) {
	t.Run("requires a store", func(t *testing.T) {
		_, err := New(nil)
		if err == nil {
			t.Fatal("expected error for nil store")
		}
	})

	t.Run("rejects invalid limits", func(t *testing.T) {
		_, err := New(window.New(), WithLimit(models.LimiterCalculation, models.Limit{Capacity: 0, Window: time.Minute}))
		if !dErrors.HasCode(err, dErrors.CodeInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}
	})

	t.Run("store failure rejects and surfaces as internal", func(t *testing.T) {
		svc, err := New(failingStore{}, WithLimit(models.LimiterCalculation, models.Limit{Capacity: 3, Window: time.Minute}))
		if err != nil {
			t.Fatal(err)
		}
		if svc.Admit(models.LimiterCalculation) {
			t.Fatal("expected rejection on store failure")
		}
		_, err = svc.Check(context.Background(), models.LimiterCalculation)
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})
}
