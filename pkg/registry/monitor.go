package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Monitor periodically probes every registered service's /health endpoint
// and updates the registry and circuit breakers with the results.
type Monitor struct {
	registry *ServiceRegistry
	client   *http.Client
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewMonitor returns a monitor probing at interval with a per-probe timeout.
func NewMonitor(registry *ServiceRegistry, interval, timeout time.Duration) *Monitor {
	return &Monitor{
		registry: registry,
		client:   &http.Client{Timeout: timeout},
		interval: interval,
		timeout:  timeout,
	}
}

// Start launches the background probe loop. Calling Start on a running
// monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.running = true

	go m.loop(ctx)
	slog.Info("Service health monitor started", "interval", m.interval)
}

// Stop terminates the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.running = false
	m.mu.Unlock()

	cancel()
	<-done
	slog.Info("Service health monitor stopped")
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	// Probe once immediately so /services is populated soon after boot.
	m.checkAllSafe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAllSafe(ctx)
		}
	}
}

// checkAllSafe keeps the loop alive across unexpected panics, backing off
// briefly so a persistent fault cannot spin the loop.
func (m *Monitor) checkAllSafe(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Health check round panicked", "panic", r)
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
		}
	}()
	m.CheckAll(ctx)
}

// CheckAll probes every probeable service once, in parallel, and blocks
// until all probes complete.
func (m *Monitor) CheckAll(ctx context.Context) {
	targets := m.registry.probeTargets()
	var wg sync.WaitGroup
	for _, svc := range targets {
		wg.Add(1)
		go func(name, baseURL string) {
			defer wg.Done()
			m.probe(ctx, name, baseURL)
		}(svc.Name, svc.BaseURL)
	}
	wg.Wait()
}

func (m *Monitor) probe(ctx context.Context, name, baseURL string) {
	cb := m.registry.breakers.Get(name)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		m.registry.recordProbe(name, HealthUnhealthy, 0, err)
		cb.RecordFailure()
		return
	}

	resp, err := m.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		m.registry.recordProbe(name, HealthUnhealthy, latency, err)
		cb.RecordFailure()
		slog.Warn("Health probe failed", "service", name, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		m.registry.recordProbe(name, HealthHealthy, latency, nil)
		cb.RecordSuccess()
		return
	}
	m.registry.recordProbe(name, HealthDegraded, latency,
		fmt.Errorf("health endpoint returned status %d", resp.StatusCode))
	cb.RecordFailure()
	slog.Warn("Health probe degraded", "service", name, "status", resp.StatusCode)
}
