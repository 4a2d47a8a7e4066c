// Package breaker implements a per-service circuit breaker that shields the
// orchestrator from repeatedly calling failing downstream modules.
//
// The breaker is a three-state machine: closed (normal), open (failing, all
// calls rejected), and half-open (probing). The open to half-open transition
// happens lazily when state is read after the recovery timeout elapses; no
// background timer is involved.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Do when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is a circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Stats is a point-in-time snapshot of a breaker's counters.
type Stats struct {
	TotalCalls          int64   `json:"total_calls"`
	TotalSuccesses      int64   `json:"total_successes"`
	TotalFailures       int64   `json:"total_failures"`
	TotalRejections     int64   `json:"total_rejections"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	SuccessRate         float64 `json:"success_rate"`
}

// Config holds a breaker's tunables.
type Config struct {
	FailureThreshold int `json:"failure_threshold"`
	RecoveryTimeoutS int `json:"recovery_timeout_s"`
	HalfOpenMaxCalls int `json:"half_open_max_calls"`
}

// Status is the wire representation of one breaker.
type Status struct {
	Name        string `json:"name"`
	State       State  `json:"state"`
	IsAvailable bool   `json:"is_available"`
	Stats       Stats  `json:"stats"`
	Config      Config `json:"config"`
}

// CircuitBreaker tracks failures for one downstream service.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	halfOpenMax      int

	mu                   sync.Mutex
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenInFlight     int
	totalCalls           int64
	totalSuccesses       int64
	totalFailures        int64
	totalRejections      int64
	lastFailure          time.Time
	lastSuccess          time.Time
	lastStateChange      time.Time

	now func() time.Time
}

// New returns a closed breaker. failureThreshold consecutive failures open
// it; after recoveryTimeout it half-opens and closes again only after
// halfOpenMax consecutive probe successes.
func New(name string, failureThreshold int, recoveryTimeout time.Duration, halfOpenMax int) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 60 * time.Second
	}
	if halfOpenMax <= 0 {
		halfOpenMax = 1
	}
	cb := &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		halfOpenMax:      halfOpenMax,
		state:            StateClosed,
		now:              time.Now,
	}
	cb.lastStateChange = cb.now()
	return cb
}

// Name returns the service name the breaker guards.
func (cb *CircuitBreaker) Name() string { return cb.name }

// State returns the current state, applying the lazy open to half-open
// transition when the recovery timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && cb.now().Sub(cb.lastFailure) >= cb.recoveryTimeout {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	cb.state = to
	cb.lastStateChange = cb.now()
	cb.halfOpenInFlight = 0
	cb.consecutiveSuccesses = 0
}

// IsAvailable reports whether a call may proceed right now. In half-open
// state at most halfOpenMax probes are admitted at a time.
func (cb *CircuitBreaker) IsAvailable() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.availableLocked()
}

func (cb *CircuitBreaker) availableLocked() bool {
	switch cb.stateLocked() {
	case StateClosed:
		return true
	case StateHalfOpen:
		return cb.halfOpenInFlight < cb.halfOpenMax
	default:
		return false
	}
}

// RecordSuccess notes a successful call. In half-open state the breaker
// closes after halfOpenMax consecutive successes.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.totalCalls++
	cb.totalSuccesses++
	cb.lastSuccess = cb.now()
	cb.consecutiveFailures = 0

	if cb.stateLocked() == StateHalfOpen {
		if cb.halfOpenInFlight > 0 {
			cb.halfOpenInFlight--
		}
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.halfOpenMax {
			cb.transitionLocked(StateClosed)
		}
		return
	}
	cb.consecutiveSuccesses++
}

// RecordFailure notes a failed call. Reaching the failure threshold, or any
// failure while half-open, opens the breaker.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.totalCalls++
	cb.totalFailures++
	cb.consecutiveSuccesses = 0
	cb.consecutiveFailures++
	cb.lastFailure = cb.now()

	state := cb.stateLocked()
	if state == StateHalfOpen || (state == StateClosed && cb.consecutiveFailures >= cb.failureThreshold) {
		cb.transitionLocked(StateOpen)
	}
}

// Do runs fn under the breaker. It returns ErrCircuitOpen without calling fn
// when the breaker rejects the call, and records fn's outcome otherwise.
// Rejections are counted separately from failures.
func (cb *CircuitBreaker) Do(fn func() error) error {
	cb.mu.Lock()
	if !cb.availableLocked() {
		cb.totalRejections++
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	if cb.state == StateHalfOpen {
		cb.halfOpenInFlight++
	}
	cb.mu.Unlock()

	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// Reset forces the breaker back to closed and clears the failure streak.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed)
	cb.consecutiveFailures = 0
	cb.lastFailure = time.Time{}
}

// Snapshot returns the wire representation of the breaker.
func (cb *CircuitBreaker) Snapshot() Status {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	state := cb.stateLocked()

	successRate := 0.0
	if cb.totalCalls > 0 {
		successRate = float64(cb.totalSuccesses) / float64(cb.totalCalls)
	}
	return Status{
		Name:        cb.name,
		State:       state,
		IsAvailable: cb.availableLocked(),
		Stats: Stats{
			TotalCalls:          cb.totalCalls,
			TotalSuccesses:      cb.totalSuccesses,
			TotalFailures:       cb.totalFailures,
			TotalRejections:     cb.totalRejections,
			ConsecutiveFailures: cb.consecutiveFailures,
			SuccessRate:         successRate,
		},
		Config: Config{
			FailureThreshold: cb.failureThreshold,
			RecoveryTimeoutS: int(cb.recoveryTimeout / time.Second),
			HalfOpenMaxCalls: cb.halfOpenMax,
		},
	}
}
