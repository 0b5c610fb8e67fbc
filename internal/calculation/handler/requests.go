package handler

import (
	"net/url"
	"strconv"
	"strings"

	dErrors "calculation/pkg/domain-errors"
)

// CalculationRequest carries the query parameters of GET /calculation.
type CalculationRequest struct {
	Num1 int64
	Num2 int64
}

// ParseCalculationRequest reads num1 and num2 from the query string. Both are
// required non-negative integers.
func ParseCalculationRequest(q url.Values) (*CalculationRequest, error) {
	num1, err := parseOperand(q, "num1")
	if err != nil {
		return nil, err
	}
	num2, err := parseOperand(q, "num2")
	if err != nil {
		return nil, err
	}
	return &CalculationRequest{Num1: num1, Num2: num2}, nil
}

func parseOperand(q url.Values, name string) (int64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, dErrors.New(dErrors.CodeInvalidArgument, name+" is required")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidArgument, name+" must be a non-negative integer")
	}
	return n, nil
}
