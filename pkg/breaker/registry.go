package breaker

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry holds one breaker per downstream service, creating them on
// demand with shared defaults.
type Registry struct {
	failureThreshold int
	recoveryTimeout  time.Duration
	halfOpenMax      int

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry returns a registry whose breakers use the given defaults.
func NewRegistry(failureThreshold int, recoveryTimeout time.Duration, halfOpenMax int) *Registry {
	return &Registry{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		halfOpenMax:      halfOpenMax,
		breakers:         map[string]*CircuitBreaker{},
	}
}

// Get returns the breaker for service, creating it on first use.
func (r *Registry) Get(service string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[service]
	if !ok {
		cb = New(service, r.failureThreshold, r.recoveryTimeout, r.halfOpenMax)
		r.breakers[service] = cb
	}
	return cb
}

// Reset resets the breaker for service. Unknown services are an error so
// the admin endpoint can 404 them.
func (r *Registry) Reset(service string) error {
	r.mu.Lock()
	cb, ok := r.breakers[service]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("no circuit breaker for service %q", service)
	}
	cb.Reset()
	return nil
}

// AllStatus returns a status snapshot per known service, keyed by name.
func (r *Registry) AllStatus() map[string]Status {
	r.mu.Lock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	breakers := make(map[string]*CircuitBreaker, len(r.breakers))
	for name, cb := range r.breakers {
		breakers[name] = cb
	}
	r.mu.Unlock()

	sort.Strings(names)
	out := make(map[string]Status, len(names))
	for _, name := range names {
		out[name] = breakers[name].Snapshot()
	}
	return out
}
