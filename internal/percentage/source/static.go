package source

import (
	"context"

	"github.com/shopspring/decimal"
)

// Static always returns the same percentage. It stands in for the external
// service when no upstream URL is configured.
type Static struct {
	value decimal.Decimal
}

func NewStatic(value decimal.Decimal) *Static {
	return &Static{value: value}
}

func (s *Static) Percentage(context.Context) (decimal.Decimal, error) {
	return s.value, nil
}
