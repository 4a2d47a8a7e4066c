package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	var c Counter
	assert.Equal(t, int64(0), c.Total())

	c.Inc("a")
	c.Add("a", 4)
	c.Inc("b")
	assert.Equal(t, int64(6), c.Total())
	assert.Equal(t, int64(5), c.ByLabel()["a"])
	assert.Equal(t, int64(1), c.ByLabel()["b"])

	c.Add("a", -3) // negative deltas are ignored
	assert.Equal(t, int64(6), c.Total())
}

func TestCounterUnlabeled(t *testing.T) {
	var c Counter
	c.Inc("")
	c.Inc("")
	assert.Equal(t, int64(2), c.Total())
	assert.Empty(t, c.ByLabel())
}

func TestCounterConcurrent(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc("x")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(5000), c.Total())
	assert.Equal(t, int64(5000), c.ByLabel()["x"])
}

func TestHistogramEmpty(t *testing.T) {
	h := NewHistogram(10)
	snap := h.Snapshot()
	assert.Equal(t, int64(0), snap.Count)
	assert.Equal(t, 0, snap.WindowSize)
	assert.Equal(t, 0.0, snap.P95)
}

func TestHistogramPercentiles(t *testing.T) {
	h := NewHistogram(100)
	for i := 1; i <= 100; i++ {
		h.Observe(float64(i))
	}
	snap := h.Snapshot()
	assert.Equal(t, int64(100), snap.Count)
	assert.Equal(t, 100, snap.WindowSize)
	assert.Equal(t, 1.0, snap.Min)
	assert.Equal(t, 100.0, snap.Max)
	assert.InDelta(t, 50.5, snap.Avg, 1e-9)
	assert.Equal(t, 51.0, snap.P50)
	assert.Equal(t, 96.0, snap.P95)
	assert.Equal(t, 100.0, snap.P99)
}

func TestHistogramWindowEviction(t *testing.T) {
	h := NewHistogram(3)
	for _, v := range []float64{100, 200, 300, 1, 2} {
		h.Observe(v)
	}
	snap := h.Snapshot()
	// Window holds only the last three observations: 300, 1, 2.
	assert.Equal(t, int64(5), snap.Count)
	assert.Equal(t, 3, snap.WindowSize)
	assert.Equal(t, 1.0, snap.Min)
	assert.Equal(t, 300.0, snap.Max)
}

func TestCollectorRecordDecision(t *testing.T) {
	c := NewCollector(100)
	c.RecordDecision("u1", "dsa_practice", "remediation", 0.8, 12*time.Millisecond)
	c.RecordDecision("u1", "dsa_practice", "remediation", 0.7, 8*time.Millisecond)
	c.RecordDecision("u2", "project_studio", "normal", 0.5, 5*time.Millisecond)

	decisions := c.Counter("decisions_total")
	assert.Equal(t, int64(3), decisions.Total())
	assert.Equal(t, int64(2), decisions.ByLabel()["dsa_practice"])
	assert.Equal(t, int64(1), decisions.ByLabel()["project_studio"])
	assert.Equal(t, int64(2), c.Counter("decisions_by_depth").ByLabel()["remediation"])
	assert.Equal(t, 2, c.ActiveUsers())

	recent := c.RecentDecisions()
	require.Len(t, recent, 3)
	// Most recent first.
	assert.Equal(t, "u2", recent[0].UserID)
	assert.Equal(t, "project_studio", recent[0].NextModule)
	assert.Equal(t, "u1", recent[2].UserID)
}

func TestCollectorRecentDecisionRing(t *testing.T) {
	c := NewCollector(100)
	for i := 0; i < 60; i++ {
		c.RecordDecision("u", "project_studio", "normal", 0.5, time.Millisecond)
	}
	assert.Len(t, c.RecentDecisions(), 50)
	assert.Equal(t, int64(60), c.Counter("decisions_total").Total())
}

func TestCollectorSummary(t *testing.T) {
	c := NewCollector(100)
	c.RecordDecision("u1", "dsa_practice", "critical", 0.9, 3*time.Millisecond)
	c.Counter("errors_total").Inc("db")

	summary := c.Summary()
	counters, ok := summary["counters"].(map[string]counterSnapshot)
	require.True(t, ok)
	assert.Equal(t, int64(1), counters["decisions_total"].Total)
	assert.Equal(t, int64(1), counters["errors_total"].Total)
	assert.Equal(t, 1, summary["active_users"])

	hists, ok := summary["histograms"].(map[string]HistogramSnapshot)
	require.True(t, ok)
	assert.Contains(t, hists, "llm_latency_ms")

	health := c.HealthSummary()
	assert.Equal(t, int64(1), health["decisions_total"])
	assert.Equal(t, int64(1), health["errors_total"])
}
