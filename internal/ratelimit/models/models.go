package models

import (
	"time"

	dErrors "calculation/pkg/domain-errors"
)

// LimiterName identifies one independently counted admission window.
type LimiterName string

const (
	// LimiterCalculation gates GET /calculation.
	LimiterCalculation LimiterName = "calculation"
)

// Limit is the capacity C admitted per window W.
type Limit struct {
	Capacity int
	Window   time.Duration
}

// Validate rejects limits that could never admit a request.
func (l Limit) Validate() error {
	if l.Capacity < 1 {
		return dErrors.New(dErrors.CodeInvalidArgument, "limit capacity must be at least 1")
	}
	if l.Window <= 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "limit window must be positive")
	}
	return nil
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// NewRateLimitKey is the store key for a limiter.
func NewRateLimitKey(name LimiterName) string {
	return "rl:" + string(name)
}
