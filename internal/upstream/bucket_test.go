package upstream_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/upstream"
)

func TestTokenBucket_AdmitsWithinCapacity(t *testing.T) {
	b := upstream.NewTokenBucket(5, 5, time.Second)
	for i := 0; i < 5; i++ {
		ok, _ := b.TryConsume(1)
		require.True(t, ok, "admission %d should succeed within capacity", i)
	}
}

func TestTokenBucket_ThrottlesPastCapacity(t *testing.T) {
	b := upstream.NewTokenBucket(2, 2, time.Second)
	ok, _ := b.TryConsume(2)
	require.True(t, ok)

	ok, wait := b.TryConsume(1)
	require.False(t, ok)
	require.Greater(t, wait, time.Duration(0))
}

func TestTokenBucket_NeverExceedsCapacityAfterRefill(t *testing.T) {
	b := upstream.NewTokenBucket(3, 100, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	// Even after many elapsed periods, at most `capacity` tokens are
	// ever available in one shot.
	ok, _ := b.TryConsume(3)
	require.True(t, ok)
	ok, _ = b.TryConsume(1)
	require.False(t, ok)
}
