package memory

import (
	"context"
	"sync"

	"calculation/internal/audit"
)

// InMemoryStore keeps audit records in insertion order. IDs start at 1.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []audit.Record
	nextID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) Insert(ctx context.Context, record audit.Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record.ID = s.nextID
	s.nextID++
	s.records = append(s.records, record)
	return record.ID, nil
}

// FindPage returns records in ascending ID order. IDs are assigned in
// insertion order, so slice order is ID order.
func (s *InMemoryStore) FindPage(ctx context.Context, page, size int) ([]audit.Record, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := int64(len(s.records))
	if size <= 0 || page < 0 || int64(page) >= audit.PageCount(total, size) {
		return []audit.Record{}, total, nil
	}
	start := page * size
	end := min(start+size, len(s.records))
	return append([]audit.Record(nil), s.records[start:end]...), total, nil
}
