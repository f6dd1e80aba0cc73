package qkernel

import (
	"sync"
	"time"

	"github.com/theapemachine/errnie"
)

/*
CircuitState represents the state of the fallback breaker.
*/
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Accelerator is tried on every call
	CircuitOpen                         // Accelerator is skipped, software only
	CircuitHalfOpen                     // A limited number of trial calls go to the accelerator
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

/*
CircuitBreaker optionally stops the dispatcher from trying an accelerator
that keeps failing. Without it every call tries the accelerator first and
falls back on its own; with it, maxFailures consecutive failed calls send
the following calls straight to the software kernel until resetTimeout has
passed, after which halfOpenMax successful trial calls close it again.

A nil *CircuitBreaker allows everything, which is the default behavior.
*/
type CircuitBreaker struct {
	mu               sync.Mutex
	maxFailures      int           // Consecutive failures before opening
	resetTimeout     time.Duration // Time to wait before retrying the accelerator
	halfOpenMax      int           // Successful trial calls needed to close
	failureCount     int           // Current count of consecutive failures
	state            CircuitState  // Current state of the breaker
	openTime         time.Time     // Time when the breaker was opened
	halfOpenAttempts int           // Successful trial calls in half-open state
}

/*
NewCircuitBreaker returns a closed breaker, or nil when config.MaxFailures
is zero or less, which disables it.
*/
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		return nil
	}

	halfOpenMax := config.HalfOpenMax
	if halfOpenMax < 1 {
		halfOpenMax = 1
	}

	return &CircuitBreaker{
		maxFailures:  config.MaxFailures,
		resetTimeout: config.ResetTimeout,
		halfOpenMax:  halfOpenMax,
		state:        CircuitClosed,
	}
}

// State returns the current state; a nil breaker is always closed.
func (cb *CircuitBreaker) State() CircuitState {
	if cb == nil {
		return CircuitClosed
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

/*
RecordFailure records a failed accelerated call and opens the breaker once
the threshold is reached, or reopens it when a half-open trial call fails.
*/
func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++

	switch cb.state {
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.openTime = time.Now()
		errnie.Info("fallback breaker reopened from half-open state")
	case CircuitClosed:
		if cb.failureCount >= cb.maxFailures {
			cb.state = CircuitOpen
			cb.openTime = time.Now()
			errnie.Info("fallback breaker opened after %d failures", cb.failureCount)
		}
	}
}

/*
RecordSuccess records a successful accelerated call. In half-open state it
counts towards closing the breaker; in closed state it resets the failure
count.
*/
func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.halfOpenAttempts++
		if cb.halfOpenAttempts >= cb.halfOpenMax {
			cb.state = CircuitClosed
			cb.failureCount = 0
			cb.halfOpenAttempts = 0
			errnie.Info("fallback breaker closed from half-open")
		}
	case CircuitClosed:
		cb.failureCount = 0
	}
}

/*
Allow reports whether the next call may try the accelerator.
*/
func (cb *CircuitBreaker) Allow() bool {
	if cb == nil {
		return true
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.openTime) > cb.resetTimeout {
			cb.state = CircuitHalfOpen
			cb.halfOpenAttempts = 0
			return true
		}
		return false
	case CircuitHalfOpen:
		return cb.halfOpenAttempts < cb.halfOpenMax
	default:
		return false
	}
}
