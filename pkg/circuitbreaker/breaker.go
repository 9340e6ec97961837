package circuitbreaker

import (
	"sync"
	"time"
)

// CircuitBreaker tracks consecutive failures of one RPC endpoint within a time window.
// It trips after threshold failures and closes again after resetTimeout or on the next success.
type CircuitBreaker struct {
	enabled       bool
	failureCount  int
	failureWindow time.Duration
	failThreshold int
	resetTimeout  time.Duration
	lastFailure   time.Time
	lastSuccess   time.Time
	tripped       bool
	tripTime      time.Time
	now           func() time.Time
	mu            sync.Mutex
}

// State is a point-in-time view of a breaker.
type State struct {
	Open         bool      `json:"open"`
	FailureCount int       `json:"failure_count"`
	LastFailure  time.Time `json:"last_failure,omitempty"`
	LastSuccess  time.Time `json:"last_success,omitempty"`
	TripTime     time.Time `json:"trip_time,omitempty"`
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(enabled bool, threshold int, window time.Duration, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		enabled:       enabled,
		failThreshold: threshold,
		failureWindow: window,
		resetTimeout:  resetTimeout,
		now:           time.Now,
	}
}

// RecordFailure records a failure and returns true if the breaker is open afterwards.
func (cb *CircuitBreaker) RecordFailure() bool {
	if !cb.enabled {
		return false
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.expireLocked(now)
	if cb.tripped {
		cb.lastFailure = now
		return true
	}

	if now.Sub(cb.lastFailure) > cb.failureWindow {
		cb.failureCount = 0
	}

	cb.failureCount++
	cb.lastFailure = now

	if cb.failureCount >= cb.failThreshold {
		cb.tripped = true
		cb.tripTime = now
		return true
	}

	return false
}

// RecordSuccess closes the breaker and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.tripped = false
	cb.failureCount = 0
	cb.lastSuccess = cb.now()
}

// IsOpen returns true if the circuit is open (tripped)
func (cb *CircuitBreaker) IsOpen() bool {
	if !cb.enabled {
		return false
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.expireLocked(cb.now())
	return cb.tripped
}

// Reset manually resets the circuit breaker
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.tripped = false
	cb.failureCount = 0
}

// GetState returns a snapshot of the breaker.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.enabled {
		cb.expireLocked(cb.now())
	}
	return State{
		Open:         cb.tripped,
		FailureCount: cb.failureCount,
		LastFailure:  cb.lastFailure,
		LastSuccess:  cb.lastSuccess,
		TripTime:     cb.tripTime,
	}
}

// expireLocked closes a tripped breaker whose reset timeout has elapsed.
func (cb *CircuitBreaker) expireLocked(now time.Time) {
	if cb.tripped && now.Sub(cb.tripTime) > cb.resetTimeout {
		cb.tripped = false
		cb.failureCount = 0
	}
}
