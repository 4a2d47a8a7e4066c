// Package registry tracks the health of downstream learning modules. A
// background monitor probes each module's /health endpoint and feeds the
// results into the per-service circuit breakers, which in turn gate routing.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/studymate/orchestrator/pkg/breaker"
	"github.com/studymate/orchestrator/pkg/config"
)

// HealthState classifies one service's probe history.
type HealthState string

const (
	HealthUnknown   HealthState = "unknown"
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// ServiceHealth is the last known probe result for one service.
type ServiceHealth struct {
	Name                string      `json:"name"`
	State               HealthState `json:"status"`
	Embedded            bool        `json:"is_embedded"`
	BaseURL             string      `json:"url,omitempty"`
	Port                int         `json:"port,omitempty"`
	LastChecked         *time.Time  `json:"last_checked,omitempty"`
	LastError           string      `json:"last_error,omitempty"`
	LatencyMS           float64     `json:"latency_ms,omitempty"`
	ConsecutiveFailures int         `json:"consecutive_failures"`
	UptimeChecks        int         `json:"uptime_checks"`
	HealthyChecks       int         `json:"healthy_checks"`
	AvailabilityPct     float64     `json:"availability_pct"`
	BreakerState        string      `json:"circuit_breaker,omitempty"`
}

// ServiceRegistry holds health snapshots for every known service: the
// probeable modules from the catalog plus the embedded services, which are
// always considered healthy.
type ServiceRegistry struct {
	breakers *breaker.Registry

	mu       sync.RWMutex
	services map[string]*ServiceHealth
}

// New builds a registry covering the module catalog and the embedded
// services. Modules without a BaseURL are treated as embedded.
func New(modules *config.ModuleRegistry, breakers *breaker.Registry) *ServiceRegistry {
	r := &ServiceRegistry{
		breakers: breakers,
		services: map[string]*ServiceHealth{},
	}
	for _, name := range modules.Names() {
		def, _ := modules.Get(name)
		r.services[name] = &ServiceHealth{
			Name:     name,
			State:    HealthUnknown,
			Embedded: def.BaseURL == "",
			BaseURL:  def.BaseURL,
			Port:     def.Port,
		}
		if def.BaseURL != "" {
			// Pre-register the breaker so status endpoints see every
			// probeable service from boot, not from first traffic.
			breakers.Get(name)
		}
	}
	for _, name := range config.EmbeddedServices {
		r.services[name] = &ServiceHealth{
			Name:     name,
			State:    HealthHealthy,
			Embedded: true,
		}
	}
	return r
}

// IsHealthy reports whether a service should receive traffic. Embedded
// services always do; probeable ones are gated by their circuit breaker.
func (r *ServiceRegistry) IsHealthy(name string) bool {
	r.mu.RLock()
	svc, ok := r.services[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if svc.Embedded {
		return true
	}
	return r.breakers.Get(name).State() != breaker.StateOpen
}

// HealthMap returns name → healthy for every known service, the shape the
// decision engine consumes.
func (r *ServiceRegistry) HealthMap() map[string]bool {
	r.mu.RLock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	r.mu.RUnlock()

	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = r.IsHealthy(name)
	}
	return out
}

// Get returns the health snapshot for name.
func (r *ServiceRegistry) Get(name string) (ServiceHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	if !ok {
		return ServiceHealth{}, false
	}
	out := *svc
	if out.UptimeChecks > 0 {
		out.AvailabilityPct = float64(out.HealthyChecks) / float64(out.UptimeChecks) * 100
	} else {
		// Never probed counts as fully available, not as an outage.
		out.AvailabilityPct = 100
	}
	// Embedded services are never gated by a breaker, so none is attached
	// or created for them.
	if !out.Embedded {
		out.BreakerState = string(r.breakers.Get(name).State())
	}
	return out, true
}

// AllStatus returns snapshots for every service, sorted by name.
func (r *ServiceRegistry) AllStatus() []ServiceHealth {
	r.mu.RLock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	out := make([]ServiceHealth, 0, len(names))
	for _, name := range names {
		if svc, ok := r.Get(name); ok {
			out = append(out, svc)
		}
	}
	return out
}

// probeTargets returns the services that have a URL to probe.
func (r *ServiceRegistry) probeTargets() []*ServiceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var targets []*ServiceHealth
	for _, svc := range r.services {
		if !svc.Embedded && svc.BaseURL != "" {
			targets = append(targets, svc)
		}
	}
	return targets
}

// recordProbe folds one probe outcome into the snapshot. A latency of zero
// means no response was received, so the last observed latency is kept.
func (r *ServiceRegistry) recordProbe(name string, state HealthState, latency time.Duration, probeErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[name]
	if !ok {
		return
	}
	now := time.Now().UTC()
	svc.State = state
	svc.LastChecked = &now
	svc.UptimeChecks++
	if latency > 0 {
		svc.LatencyMS = float64(latency.Microseconds()) / 1000.0
	}
	if state == HealthHealthy {
		svc.HealthyChecks++
		svc.ConsecutiveFailures = 0
	} else {
		svc.ConsecutiveFailures++
	}
	if probeErr != nil {
		svc.LastError = probeErr.Error()
	} else {
		svc.LastError = ""
	}
}
