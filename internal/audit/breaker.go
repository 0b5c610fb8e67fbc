package audit

import (
	"sync"
	"time"
)

// CircuitBreaker stops audit writes during store outages. After threshold
// consecutive failures the circuit opens and writes are skipped until the
// cooldown elapses. The first write after that is a single trial: success
// closes the circuit and failure reopens it for another cooldown.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold int           // failures to trigger open
	cooldown  time.Duration // how long to stay open
	clock     func() time.Time

	failures  int       // consecutive failures
	openUntil time.Time // when to transition from open to half-open
	isOpen    bool
	trialing  bool // a half-open trial write is in flight
}

// NewCircuitBreaker creates a circuit breaker.
// threshold: number of consecutive failures to open the circuit
// cooldown: how long to stay open before trying again
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		clock:     time.Now,
	}
}

// Allow returns true if the circuit is closed, or if the cooldown has elapsed
// and no other caller holds the trial. A caller that gets true while the
// circuit is open must report the outcome with RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.isOpen {
		return true
	}
	if cb.trialing || !cb.clock().After(cb.openUntil) {
		return false
	}
	cb.trialing = true
	return true
}

// RecordSuccess records a successful operation, closing the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.isOpen = false
	cb.trialing = false
}

// RecordFailure records a failed operation and reports whether it opened the
// circuit. A failed trial reopens it.
func (cb *CircuitBreaker) RecordFailure() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.trialing {
		cb.trialing = false
		cb.openUntil = cb.clock().Add(cb.cooldown)
		return true
	}
	cb.failures++
	if cb.failures >= cb.threshold && !cb.isOpen {
		cb.isOpen = true
		cb.openUntil = cb.clock().Add(cb.cooldown)
		return true
	}
	return false
}

// IsOpen returns true until a write succeeds, including while a trial is in flight.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.isOpen
}
