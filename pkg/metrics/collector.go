package metrics

import (
	"sync"
	"time"
)

const recentDecisionSlots = 50

// RecentDecision is one entry in the collector's decision ring.
type RecentDecision struct {
	UserID     string    `json:"user_id"`
	NextModule string    `json:"next_module"`
	Depth      string    `json:"depth"`
	Confidence float64   `json:"confidence"`
	LatencyMS  float64   `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Collector aggregates the orchestrator's operational instruments: named
// counters, latency histograms, the set of users seen, and a ring of the
// most recent routing decisions. Nothing is persisted.
type Collector struct {
	mu         sync.Mutex
	startedAt  time.Time
	counters   map[string]*Counter
	histograms map[string]*Histogram
	histSize   int
	users      map[string]struct{}
	recent     []RecentDecision
	recentNext int
	recentFull bool
}

// NewCollector returns a collector whose histograms retain bufferSize
// observations each. The standard instruments are pre-registered.
func NewCollector(bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	c := &Collector{
		startedAt:  time.Now(),
		counters:   map[string]*Counter{},
		histograms: map[string]*Histogram{},
		histSize:   bufferSize,
		users:      map[string]struct{}{},
		recent:     make([]RecentDecision, recentDecisionSlots),
	}
	for _, name := range []string{
		"decisions_total", "decisions_by_depth", "llm_failures",
		"circuit_breaker_trips", "health_checks", "feedback_events",
		"errors_total",
	} {
		c.counters[name] = &Counter{}
	}
	for _, name := range []string{
		"decision_latency_ms", "llm_latency_ms", "db_latency_ms",
	} {
		c.histograms[name] = NewHistogram(bufferSize)
	}
	return c
}

// Counter returns the named counter, creating it on first use.
func (c *Collector) Counter(name string) *Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctr, ok := c.counters[name]
	if !ok {
		ctr = &Counter{}
		c.counters[name] = ctr
	}
	return ctr
}

// Histogram returns the named histogram, creating it on first use.
func (c *Collector) Histogram(name string) *Histogram {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.histograms[name]
	if !ok {
		h = NewHistogram(c.histSize)
		c.histograms[name] = h
	}
	return h
}

// RecordDecision updates all decision-related instruments in one call.
func (c *Collector) RecordDecision(userID, module, depth string, confidence float64, latency time.Duration) {
	latencyMS := float64(latency.Microseconds()) / 1000.0
	c.Counter("decisions_total").Inc(module)
	c.Counter("decisions_by_depth").Inc(depth)
	c.Histogram("decision_latency_ms").Observe(latencyMS)

	c.mu.Lock()
	c.users[userID] = struct{}{}
	c.recent[c.recentNext] = RecentDecision{
		UserID:     userID,
		NextModule: module,
		Depth:      depth,
		Confidence: confidence,
		LatencyMS:  latencyMS,
		Timestamp:  time.Now().UTC(),
	}
	c.recentNext++
	if c.recentNext == recentDecisionSlots {
		c.recentNext = 0
		c.recentFull = true
	}
	c.mu.Unlock()
}

// ActiveUsers returns how many distinct users have received a decision.
func (c *Collector) ActiveUsers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.users)
}

// RecentDecisions returns the retained decisions, most recent first.
func (c *Collector) RecentDecisions() []RecentDecision {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.recentNext
	if c.recentFull {
		n = recentDecisionSlots
	}
	out := make([]RecentDecision, 0, n)
	for i := 0; i < n; i++ {
		idx := c.recentNext - 1 - i
		if idx < 0 {
			idx += recentDecisionSlots
		}
		out = append(out, c.recent[idx])
	}
	return out
}

// UptimeSeconds returns seconds since the collector was created.
func (c *Collector) UptimeSeconds() float64 {
	return time.Since(c.startedAt).Seconds()
}

// counterSnapshot is a counter's value on the metrics wire.
type counterSnapshot struct {
	Total   int64            `json:"total"`
	ByLabel map[string]int64 `json:"by_label,omitempty"`
}

// Summary returns the full metrics payload for the metrics endpoint.
func (c *Collector) Summary() map[string]any {
	c.mu.Lock()
	counterRefs := make(map[string]*Counter, len(c.counters))
	for name, ctr := range c.counters {
		counterRefs[name] = ctr
	}
	histRefs := make(map[string]*Histogram, len(c.histograms))
	for name, h := range c.histograms {
		histRefs[name] = h
	}
	c.mu.Unlock()

	counters := make(map[string]counterSnapshot, len(counterRefs))
	for name, ctr := range counterRefs {
		snap := counterSnapshot{Total: ctr.Total(), ByLabel: ctr.ByLabel()}
		if len(snap.ByLabel) == 0 {
			snap.ByLabel = nil
		}
		counters[name] = snap
	}
	histograms := make(map[string]HistogramSnapshot, len(histRefs))
	for name, h := range histRefs {
		histograms[name] = h.Snapshot()
	}

	return map[string]any{
		"uptime_seconds":   c.UptimeSeconds(),
		"counters":         counters,
		"histograms":       histograms,
		"active_users":     c.ActiveUsers(),
		"recent_decisions": c.RecentDecisions(),
	}
}

// HealthSummary returns the compact subset embedded in health responses.
func (c *Collector) HealthSummary() map[string]any {
	latency := c.Histogram("decision_latency_ms").Snapshot()
	return map[string]any{
		"decisions_total":        c.Counter("decisions_total").Total(),
		"errors_total":           c.Counter("errors_total").Total(),
		"active_users":           c.ActiveUsers(),
		"decision_latency_p95ms": latency.P95,
	}
}
