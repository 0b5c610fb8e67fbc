package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"calculation/internal/audit"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) insert(n int) {
	for i := range n {
		_, err := s.store.Insert(s.ctx, audit.NewRecord(time.Now(), "GET /calculation", fmt.Sprintf("num1=%d", i), "{}", true))
		s.Require().NoError(err)
	}
}

func (s *InMemoryStoreSuite) TestInsertAssignsIncreasingIDs() {
	id1, err := s.store.Insert(s.ctx, audit.Record{Endpoint: "GET /calculation"})
	s.Require().NoError(err)
	id2, err := s.store.Insert(s.ctx, audit.Record{Endpoint: "GET /audit"})
	s.Require().NoError(err)

	s.Equal(int64(1), id1)
	s.Equal(int64(2), id2)
}

func (s *InMemoryStoreSuite) TestFindPage() {
	s.insert(25)

	s.Run("first page", func() {
		records, total, err := s.store.FindPage(s.ctx, 0, 10)
		s.Require().NoError(err)
		s.Equal(int64(25), total)
		s.Len(records, 10)
		s.Equal(int64(1), records[0].ID)
		s.Equal(int64(10), records[9].ID)
	})

	s.Run("last partial page", func() {
		records, _, err := s.store.FindPage(s.ctx, 2, 10)
		s.Require().NoError(err)
		s.Len(records, 5)
		s.Equal(int64(21), records[0].ID)
	})

	s.Run("out of range page is empty", func() {
		records, total, err := s.store.FindPage(s.ctx, 9, 10)
		s.Require().NoError(err)
		s.Empty(records)
		s.Equal(int64(25), total)
	})

	s.Run("zero size is empty", func() {
		records, total, err := s.store.FindPage(s.ctx, 0, 0)
		s.Require().NoError(err)
		s.Empty(records)
		s.Equal(int64(25), total)
	})

	s.Run("max size returns everything once", func() {
		records, total, err := s.store.FindPage(s.ctx, 0, math.MaxInt)
		s.Require().NoError(err)
		s.Len(records, 25)
		s.Equal(int64(25), total)

		records, _, err = s.store.FindPage(s.ctx, 1, math.MaxInt)
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("huge page index is empty", func() {
		for _, size := range []int{2, 4, 10} {
			records, total, err := s.store.FindPage(s.ctx, 1<<62, size)
			s.Require().NoError(err)
			s.Empty(records, "size %d", size)
			s.Equal(int64(25), total)
		}
	})

	s.Run("last page exactly full", func() {
		records, _, err := s.store.FindPage(s.ctx, 4, 5)
		s.Require().NoError(err)
		s.Len(records, 5)
		s.Equal(int64(25), records[4].ID)

		records, _, err = s.store.FindPage(s.ctx, 5, 5)
		s.Require().NoError(err)
		s.Empty(records)
	})
}

func (s *InMemoryStoreSuite) TestConcurrentInsertsGetUniqueIDs() {
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)
	for range 100 {
		wg.Go(func() {
			id, err := s.store.Insert(s.ctx, audit.Record{Endpoint: "GET /calculation"})
			s.NoError(err)
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		})
	}
	wg.Wait()
	s.Len(seen, 100)
}
