package upstream_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/upstream"
)

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	cb := upstream.NewCircuitBreaker(3, time.Minute)
	failing := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := cb.Call(func() error { return failing })
		require.Error(t, err)
	}

	require.Equal(t, upstream.StateOpen, cb.State())
	require.False(t, cb.Allow())
}

func TestCircuitBreaker_FastFailsWhenOpen(t *testing.T) {
	cb := upstream.NewCircuitBreaker(1, time.Minute)
	_ = cb.Call(func() error { return errors.New("boom") })
	require.Equal(t, upstream.StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	require.ErrorIs(t, err, upstream.ErrCircuitOpen)
	require.False(t, called, "the wrapped call must never run while open")
}

func TestCircuitBreaker_HalfOpenTripsOnFailure(t *testing.T) {
	cb := upstream.NewCircuitBreaker(1, 10*time.Millisecond)
	_ = cb.Call(func() error { return errors.New("boom") })
	require.Equal(t, upstream.StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, upstream.StateHalfOpen, cb.State())

	err := cb.Call(func() error { return errors.New("still broken") })
	require.Error(t, err)
	require.Equal(t, upstream.StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenClosesOnSuccess(t *testing.T) {
	cb := upstream.NewCircuitBreaker(1, 10*time.Millisecond)
	_ = cb.Call(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, upstream.StateHalfOpen, cb.State())

	err := cb.Call(func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, upstream.StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAdmitsOnlyOneConcurrentProbe(t *testing.T) {
	cb := upstream.NewCircuitBreaker(1, 10*time.Millisecond)
	_ = cb.Call(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, upstream.StateHalfOpen, cb.State())

	require.True(t, cb.Allow(), "first caller should be admitted as the probe")
	require.False(t, cb.Allow(), "a second concurrent caller must not also be admitted as a probe")

	cb.RecordSuccess()
	require.Equal(t, upstream.StateClosed, cb.State())
	require.True(t, cb.Allow(), "once the probe resolves, the breaker is closed and admits normally")
}
