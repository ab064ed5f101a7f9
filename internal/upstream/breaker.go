package upstream

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is one of the three circuit-breaker states.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Call when the breaker is open and a
// call is rejected without touching the network.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreaker implements the Closed → Open → HalfOpen → Closed state
// machine around a fallible call. Closed → Open after
// FailureThreshold consecutive failures; Open → HalfOpen after
// RecoveryTimeout of no calls being admitted; HalfOpen → Closed on one
// success, → Open on one failure.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration

	state           BreakerState
	consecutiveFail int
	openedAt        time.Time
	probing         bool // a single HalfOpen probe is currently in flight
	now             func() time.Time
}

// NewCircuitBreaker builds a breaker with the given thresholds.
// Defaults per spec.md §4.2: F=5, T=30s.
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// State returns the breaker's current state, resolving Open → HalfOpen
// if the recovery timeout has elapsed.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() BreakerState {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.recoveryTimeout {
		cb.state = StateHalfOpen
		cb.probing = false
	}
	return cb.state
}

// Allow reports whether a call may proceed right now, transitioning
// Open → HalfOpen as a side effect if the recovery timeout has passed.
// In HalfOpen, exactly one concurrent caller is admitted as the probe;
// every other caller is rejected until that probe's outcome is
// recorded, per spec.md's "after T ms idle, one probe is admitted".
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.stateLocked() {
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

// RecordSuccess reports a successful call outcome. It never closes a
// breaker that has concurrently tripped Open: the HalfOpen probe lock
// in Allow prevents two calls racing as probes, but a failure recorded
// while this success was already in flight shouldn't be undone by a
// late success.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFail = 0
	cb.probing = false
	if cb.state != StateOpen {
		cb.state = StateClosed
	}
}

// RecordFailure reports a failed call outcome, possibly tripping the
// breaker open.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.probing = false
		cb.trip()
		return
	}

	cb.consecutiveFail++
	if cb.consecutiveFail >= cb.failureThreshold {
		cb.trip()
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
}

// Call executes fn through the breaker: fails fast with ErrCircuitOpen
// if the breaker is open, otherwise runs fn and records the outcome.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}
	err := fn()
	if err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}
