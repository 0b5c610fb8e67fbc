package audit

import "context"

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

// Store persists audit records. Implementations assign monotonically
// increasing IDs and must be safe for concurrent use.
type Store interface {
	// Insert writes one record atomically and returns its assigned ID.
	Insert(ctx context.Context, record Record) (int64, error)

	// FindPage returns the records of a zero-based page ordered by ascending
	// ID, and the total number of records.
	FindPage(ctx context.Context, page, size int) ([]Record, int64, error)
}
