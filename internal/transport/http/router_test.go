package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"calculation/internal/audit"
	audithandler "calculation/internal/audit/handler"
	auditmemory "calculation/internal/audit/store/memory"
	"calculation/internal/calculation"
	calchandler "calculation/internal/calculation/handler"
	"calculation/internal/percentage/cache"
	percentage "calculation/internal/percentage/service"
	"calculation/internal/percentage/source"
	"calculation/internal/platform/metrics"
	ratelimitmw "calculation/internal/ratelimit/middleware"
	"calculation/internal/ratelimit/models"
	ratelimit "calculation/internal/ratelimit/service"
	"calculation/internal/ratelimit/store/window"
	"calculation/pkg/testutil"
)

type RouterSuite struct {
	suite.Suite
	now      time.Time
	store    *auditmemory.InMemoryStore
	recorder *audit.Recorder
	health   []HealthCheck
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 12, 0, 30, 0, time.UTC)
	s.store = auditmemory.NewInMemoryStore()
	s.health = nil

	recorder, err := audit.NewRecorder(s.store, audit.WithWorkers(1))
	s.Require().NoError(err)
	recorder.Start()
	s.recorder = recorder
}

func (s *RouterSuite) TearDownTest() {
	s.recorder.Close()
}

func (s *RouterSuite) router(auditRejected bool) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return s.now }
	reg := prometheus.NewRegistry()

	resolver, err := percentage.New(source.NewStatic(decimal.NewFromInt(10)), cache.NewInMemoryStore())
	s.Require().NoError(err)
	calcService, err := calculation.New(resolver)
	s.Require().NoError(err)

	limiter, err := ratelimit.New(window.New(window.WithClock(clock)),
		ratelimit.WithLimit(models.LimiterCalculation, models.Limit{Capacity: 3, Window: time.Minute}),
	)
	s.Require().NoError(err)

	query, err := audit.NewQueryService(s.store)
	s.Require().NoError(err)

	return NewRouter(Dependencies{
		Logger:        logger,
		Metrics:       metrics.New(reg),
		Gatherer:      reg,
		Clock:         clock,
		Calculation:   calchandler.New(calcService, logger),
		Audit:         audithandler.New(query, logger),
		Limiter:       ratelimitmw.New(limiter, logger),
		Recorder:      s.recorder,
		Health:        s.health,
		AuditRejected: auditRejected,
	})
}

func (s *RouterSuite) get(h http.Handler, path string) *testingResponse {
	rr := testutil.DoRequest(h, testutil.NewRequest(s.T(), http.MethodGet, path))
	return &testingResponse{code: rr.Code, header: rr.Header(), body: rr.Body.String()}
}

type testingResponse struct {
	code   int
	header http.Header
	body   string
}

func (s *RouterSuite) auditTotal() int64 {
	_, total, err := s.store.FindPage(context.Background(), 0, 1)
	s.Require().NoError(err)
	return total
}

func (s *RouterSuite) TestCalculation() {
	h := s.router(false)

	resp := s.get(h, "/calculation?num1=5&num2=5")

	s.Equal(http.StatusOK, resp.code)
	s.JSONEq(`11`, resp.body)
	s.Equal("3", resp.header.Get("X-RateLimit-Limit"))
	s.Equal("2", resp.header.Get("X-RateLimit-Remaining"))
	s.NotEmpty(resp.header.Get("X-Request-ID"))
	s.Eventually(func() bool { return s.auditTotal() == 1 }, time.Second, 10*time.Millisecond)
}

func (s *RouterSuite) TestRateLimitedRequestsAreNotAuditedByDefault() {
	h := s.router(false)

	for range 3 {
		s.Equal(http.StatusOK, s.get(h, "/calculation?num1=1&num2=1").code)
	}
	resp := s.get(h, "/calculation?num1=1&num2=1")

	s.Equal(http.StatusTooManyRequests, resp.code)
	s.Equal("30", resp.header.Get("Retry-After"))
	s.Contains(resp.body, "Too many requests")

	s.recorder.Close()
	s.Equal(int64(3), s.auditTotal())
}

func (s *RouterSuite) TestRateLimitedRequestsAuditedWhenEnabled() {
	h := s.router(true)

	for range 4 {
		s.get(h, "/calculation?num1=1&num2=1")
	}

	s.recorder.Close()
	s.Equal(int64(4), s.auditTotal())

	records, _, err := s.store.FindPage(context.Background(), 0, 10)
	s.Require().NoError(err)
	s.False(records[3].Success)
	s.Equal("Too many requests. Please try again later.", records[3].Result)
}

func (s *RouterSuite) TestInvalidCalculationIsAudited() {
	h := s.router(false)

	resp := s.get(h, "/calculation?num1=abc&num2=5")

	s.Equal(http.StatusBadRequest, resp.code)
	s.recorder.Close()
	s.Equal(int64(1), s.auditTotal())
}

type failingStore struct{}

func (failingStore) Insert(context.Context, audit.Record) (int64, error) {
	return 0, errors.New("audit database down")
}

func (failingStore) FindPage(context.Context, int, int) ([]audit.Record, int64, error) {
	return nil, 0, errors.New("audit database down")
}

func (s *RouterSuite) TestAuditFailureDoesNotChangeResponse() {
	s.recorder.Close()
	recorder, err := audit.NewRecorder(failingStore{}, audit.WithWorkers(1))
	s.Require().NoError(err)
	recorder.Start()
	s.recorder = recorder

	resp := s.get(s.router(false), "/calculation?num1=5&num2=5")

	s.Equal(http.StatusOK, resp.code)
	s.JSONEq(`11`, resp.body)
}

func (s *RouterSuite) TestAuditListing() {
	h := s.router(false)
	s.get(h, "/calculation?num1=5&num2=5")
	s.get(h, "/calculation?num1=7&num2=3")
	s.Eventually(func() bool { return s.auditTotal() == 2 }, time.Second, 10*time.Millisecond)

	resp := s.get(h, "/audit?page=0&size=10")

	s.Equal(http.StatusOK, resp.code)
	s.JSONEq(`{
		"content": [
			{"requestTime": "2024-06-01T12:00:30Z", "endpoint": "GET /calculation", "incoming": "num1=5&num2=5", "result": "11", "success": true},
			{"requestTime": "2024-06-01T12:00:30Z", "endpoint": "GET /calculation", "incoming": "num1=7&num2=3", "result": "10", "success": true}
		],
		"page": 0,
		"size": 10,
		"totalElements": 2,
		"totalPages": 1,
		"last": true
	}`, resp.body)

	// the listing call itself is audited
	s.Eventually(func() bool { return s.auditTotal() == 3 }, time.Second, 10*time.Millisecond)
}

func (s *RouterSuite) TestAuditListingHugePageIsEmpty() {
	h := s.router(false)
	s.get(h, "/calculation?num1=5&num2=5")
	s.get(h, "/calculation?num1=7&num2=3")
	s.get(h, "/calculation?num1=1&num2=1")
	s.Eventually(func() bool { return s.auditTotal() == 3 }, time.Second, 10*time.Millisecond)

	for _, path := range []string{
		"/audit?page=4611686018427387904&size=2",
		"/audit?page=4611686018427387904&size=4",
		"/audit?page=9223372036854775807&size=10",
		"/audit?page=1&size=9223372036854775807",
	} {
		resp := s.get(h, path)
		s.Equal(http.StatusOK, resp.code, path)
		s.Contains(resp.body, `"content":[]`, path)
		s.Contains(resp.body, `"last":true`, path)
	}

	resp := s.get(h, "/audit?page=0&size=9223372036854775807")
	s.Equal(http.StatusOK, resp.code)
	s.Contains(resp.body, `"totalPages":1`)
}

func (s *RouterSuite) TestHealth() {
	s.Run("all checks pass", func() {
		s.health = []HealthCheck{{Name: "redis", Check: func(context.Context) error { return nil }}}
		resp := s.get(s.router(false), "/health")
		s.Equal(http.StatusOK, resp.code)
		s.JSONEq(`{"status": "ok", "checks": {"redis": "ok"}}`, resp.body)
	})

	s.Run("failing check", func() {
		s.health = []HealthCheck{{Name: "database", Check: func(context.Context) error { return errors.New("connection refused") }}}
		resp := s.get(s.router(false), "/health")
		s.Equal(http.StatusServiceUnavailable, resp.code)
		s.Contains(resp.body, "connection refused")
	})

	s.recorder.Close()
	s.Equal(int64(0), s.auditTotal())
}

func (s *RouterSuite) TestMetrics() {
	h := s.router(false)
	s.get(h, "/calculation?num1=5&num2=5")

	resp := s.get(h, "/metrics")

	s.Equal(http.StatusOK, resp.code)
	s.Contains(resp.body, "calc_http_requests_total")
}

func (s *RouterSuite) TestNotFound() {
	rr := testutil.DoRequest(s.router(false), testutil.NewRequest(s.T(), http.MethodGet, "/nope"))

	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	testutil.AssertJSONContains(s.T(), rr, "message", "resource not found")
}

func (s *RouterSuite) TestRequestIDIsPropagated() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/health")
	req.Header.Set("X-Request-ID", "req-abc")

	rr := testutil.DoRequest(s.router(false), req)

	s.Equal("req-abc", rr.Header().Get("X-Request-ID"))
}
