// Package metrics provides in-process counters and latency histograms for
// the orchestrator's operational endpoints. Instruments are lock-protected
// and cheap enough for the request hot path; nothing is exported to an
// external system.
package metrics

import (
	"math"
	"sort"
	"sync"
)

// Counter is a monotonically increasing counter with an optional per-label
// breakdown. An empty label increments only the total.
type Counter struct {
	mu     sync.Mutex
	total  int64
	labels map[string]int64
}

// Inc adds one to the counter under label.
func (c *Counter) Inc(label string) { c.Add(label, 1) }

// Add adds n to the counter under label. Negative deltas are ignored.
func (c *Counter) Add(label string, n int64) {
	if n < 0 {
		return
	}
	c.mu.Lock()
	c.total += n
	if label != "" {
		if c.labels == nil {
			c.labels = map[string]int64{}
		}
		c.labels[label] += n
	}
	c.mu.Unlock()
}

// Total returns the overall count.
func (c *Counter) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// ByLabel returns a copy of the per-label counts.
func (c *Counter) ByLabel() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.labels))
	for k, v := range c.labels {
		out[k] = v
	}
	return out
}

// Histogram keeps the most recent observations in a fixed-size ring buffer
// and reports percentiles over that window.
type Histogram struct {
	mu     sync.Mutex
	buf    []float64
	next   int
	filled bool
	count  int64
	sum    float64
}

// NewHistogram returns a histogram retaining the last size observations.
// Size must be positive.
func NewHistogram(size int) *Histogram {
	if size <= 0 {
		size = 1
	}
	return &Histogram{buf: make([]float64, size)}
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	h.mu.Lock()
	h.buf[h.next] = v
	h.next++
	if h.next == len(h.buf) {
		h.next = 0
		h.filled = true
	}
	h.count++
	h.sum += v
	h.mu.Unlock()
}

// Count returns the total number of observations ever recorded.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Snapshot returns summary statistics over the retained window.
func (h *Histogram) Snapshot() HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	if h.filled {
		n = len(h.buf)
	}
	snap := HistogramSnapshot{Count: h.count}
	if n == 0 {
		return snap
	}

	window := make([]float64, n)
	copy(window, h.buf[:n])
	sort.Float64s(window)

	var sum float64
	for _, v := range window {
		sum += v
	}
	snap.WindowSize = n
	snap.Min = window[0]
	snap.Max = window[n-1]
	snap.Avg = sum / float64(n)
	snap.P50 = percentile(window, 50)
	snap.P95 = percentile(window, 95)
	snap.P99 = percentile(window, 99)
	return snap
}

// HistogramSnapshot is a point-in-time summary of a histogram window.
type HistogramSnapshot struct {
	Count      int64   `json:"count"`
	WindowSize int     `json:"window_size"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Avg        float64 `json:"avg"`
	P50        float64 `json:"p50"`
	P95        float64 `json:"p95"`
	P99        float64 `json:"p99"`
}

// percentile expects sorted non-empty input.
func percentile(sorted []float64, pct int) float64 {
	idx := len(sorted) * pct / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
