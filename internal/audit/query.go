package audit

import (
	"context"
	"errors"
	"fmt"

	dErrors "calculation/pkg/domain-errors"
)

// QueryService serves audit records page by page in ascending ID order.
type QueryService struct {
	store Store
}

func NewQueryService(store Store) (*QueryService, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	return &QueryService{store: store}, nil
}

// List returns page (zero-based) of the given size. A page past the end is
// empty but still reports the totals.
func (s *QueryService) List(ctx context.Context, page, size int) (Page[Record], error) {
	if page < 0 {
		return Page[Record]{}, dErrors.New(dErrors.CodeInvalidArgument, "page must be >= 0")
	}
	if size < 0 {
		return Page[Record]{}, dErrors.New(dErrors.CodeInvalidArgument, "size must be >= 0")
	}

	records, total, err := s.store.FindPage(ctx, page, size)
	if err != nil {
		return Page[Record]{}, dErrors.Wrap(fmt.Errorf("find audit page: %w", err), dErrors.CodeInternal, "failed to list audit records")
	}
	return NewPage(records, page, size, total), nil
}
