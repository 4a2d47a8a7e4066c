package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestBreaker(threshold int, timeout time.Duration, halfOpenMax int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := New("test-svc", threshold, timeout, halfOpenMax)
	cb.now = clock.Now
	return cb, clock
}

func TestBreakerStartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute, 1)
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.IsAvailable())
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute, 1)
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.IsAvailable())
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute, 1)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	// Streak was broken, so only two consecutive failures so far.
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpensAfterTimeout(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute, 1)
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())

	clock.Advance(59 * time.Second)
	assert.Equal(t, StateOpen, cb.State())

	clock.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestBreakerHalfOpenClosesAfterEnoughSuccesses(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute, 2)
	cb.RecordFailure()
	clock.Advance(2 * time.Minute)
	require.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.IsAvailable())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(3, time.Minute, 1)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordFailure()
	clock.Advance(2 * time.Minute)
	require.Equal(t, StateHalfOpen, cb.State())

	// A single failure reopens regardless of the threshold.
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())

	// The recovery timer restarts from the reopening failure.
	clock.Advance(59 * time.Second)
	assert.Equal(t, StateOpen, cb.State())
	clock.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestBreakerDo(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute, 1)

	callErr := errors.New("boom")
	err := cb.Do(func() error { return callErr })
	assert.ErrorIs(t, err, callErr)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err = cb.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock.Advance(2 * time.Minute)
	err = cb.Do(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())

	stats := cb.Snapshot().Stats
	assert.Equal(t, int64(2), stats.TotalCalls)
	assert.Equal(t, int64(1), stats.TotalSuccesses)
	assert.Equal(t, int64(1), stats.TotalFailures)
	assert.Equal(t, int64(1), stats.TotalRejections)
}

func TestBreakerHalfOpenProbeLimit(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute, 1)
	cb.RecordFailure()
	clock.Advance(2 * time.Minute)
	require.Equal(t, StateHalfOpen, cb.State())

	// One probe in flight exhausts the half-open budget.
	done := make(chan error, 1)
	release := make(chan struct{})
	go func() {
		done <- cb.Do(func() error { <-release; return nil })
	}()

	// Wait until the probe is admitted.
	require.Eventually(t, func() bool { return !cb.IsAvailable() }, time.Second, time.Millisecond)

	err := cb.Do(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerReset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute, 1)
	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.IsAvailable())
}

func TestBreakerSnapshot(t *testing.T) {
	cb, _ := newTestBreaker(5, time.Minute, 2)
	cb.RecordFailure()
	cb.RecordSuccess()

	snap := cb.Snapshot()
	assert.Equal(t, "test-svc", snap.Name)
	assert.Equal(t, StateClosed, snap.State)
	assert.True(t, snap.IsAvailable)
	assert.Equal(t, int64(2), snap.Stats.TotalCalls)
	assert.Equal(t, 0, snap.Stats.ConsecutiveFailures)
	assert.Equal(t, 0.5, snap.Stats.SuccessRate)
	assert.Equal(t, 5, snap.Config.FailureThreshold)
	assert.Equal(t, 60, snap.Config.RecoveryTimeoutS)
	assert.Equal(t, 2, snap.Config.HalfOpenMaxCalls)
}

func TestRegistryCreatesOnDemand(t *testing.T) {
	r := NewRegistry(5, time.Minute, 1)
	cb := r.Get("dsa_practice")
	require.NotNil(t, cb)
	assert.Same(t, cb, r.Get("dsa_practice"))
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry(1, time.Minute, 1)
	cb := r.Get("resume_builder")
	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	require.NoError(t, r.Reset("resume_builder"))
	assert.Equal(t, StateClosed, cb.State())

	assert.Error(t, r.Reset("unknown"))
}

func TestRegistryAllStatus(t *testing.T) {
	r := NewRegistry(5, time.Minute, 1)
	r.Get("a").RecordFailure()
	r.Get("b")

	all := r.AllStatus()
	require.Len(t, all, 2)
	assert.Equal(t, StateClosed, all["a"].State)
	assert.Equal(t, 1, all["a"].Stats.ConsecutiveFailures)
}
