package tokenbucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 3
	testWindow = time.Minute
)

type InMemoryTokenBucketStoreSuite struct {
	suite.Suite
	mu    sync.Mutex
	now   time.Time
	store *InMemoryTokenBucketStore
	ctx   context.Context
}

func TestInMemoryTokenBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryTokenBucketStoreSuite))
}

func (s *InMemoryTokenBucketStoreSuite) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *InMemoryTokenBucketStoreSuite) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func (s *InMemoryTokenBucketStoreSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	s.store = New(WithClock(s.clock))
	s.ctx = context.Background()
}

func (s *InMemoryTokenBucketStoreSuite) TestBurstUpToCapacity() {
	for i := range testLimit {
		result, err := s.store.Allow(s.ctx, "test:burst", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit-1-i, result.Remaining)
	}

	result, err := s.store.Allow(s.ctx, "test:burst", testLimit, testWindow)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(20, result.RetryAfter)
	s.Equal(0, result.Remaining)
}

func (s *InMemoryTokenBucketStoreSuite) TestRefill() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "test:refill", testLimit, testWindow)
		s.Require().NoError(err)
	}

	s.advance(testWindow / testLimit)
	result, err := s.store.Allow(s.ctx, "test:refill", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)

	result, err = s.store.Allow(s.ctx, "test:refill", testLimit, testWindow)
	s.Require().NoError(err)
	s.False(result.Allowed)
}

func (s *InMemoryTokenBucketStoreSuite) TestChangedLimitStartsNewBucket() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "test:resize", testLimit, testWindow)
		s.Require().NoError(err)
	}

	result, err := s.store.Allow(s.ctx, "test:resize", testLimit+2, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(testLimit+1, result.Remaining)
}
