// Package calculation adds two non-negative integers and augments the sum by
// the current percentage.
package calculation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	dErrors "calculation/pkg/domain-errors"
	"calculation/pkg/requestcontext"
)

// ResultPlaces is the number of decimal places results are rounded to.
const ResultPlaces = 2

var hundred = decimal.NewFromInt(100)

// PercentageResolver supplies the percentage to apply.
type PercentageResolver interface {
	Resolve(ctx context.Context) (decimal.Decimal, error)
}

type Service struct {
	resolver PercentageResolver
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(resolver PercentageResolver, opts ...Option) (*Service, error) {
	if resolver == nil {
		return nil, errors.New("percentage resolver is required")
	}
	s := &Service{
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Calculate returns (a + b) increased by the resolved percentage, rounded
// half-up to ResultPlaces. Resolver errors (Unavailable included) are
// returned unchanged.
func (s *Service) Calculate(ctx context.Context, a, b int64) (decimal.Decimal, error) {
	if a < 0 || b < 0 {
		return decimal.Zero, dErrors.New(dErrors.CodeInvalidArgument, "operands must be non-negative integers")
	}

	percentage, err := s.resolver.Resolve(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	result := Apply(decimal.NewFromInt(a).Add(decimal.NewFromInt(b)), percentage)
	s.logger.DebugContext(ctx, "calculation completed",
		"num1", a,
		"num2", b,
		"percentage", percentage.String(),
		"result", result.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return result, nil
}

// Apply returns sum + sum*percentage/100 rounded half-up to ResultPlaces.
func Apply(sum, percentage decimal.Decimal) decimal.Decimal {
	increment := sum.Mul(percentage).Div(hundred)
	return sum.Add(increment).Round(ResultPlaces)
}
