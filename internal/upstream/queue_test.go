package upstream_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/upstream"
)

func TestPriorityQueue_DropExcessLowShedsOldestLowFirst(t *testing.T) {
	q := upstream.NewPriorityQueue()
	q.Add("high-1", upstream.PriorityHigh)
	q.Add("low-1", upstream.PriorityLow)
	q.Add("low-2", upstream.PriorityLow)
	q.Add("low-3", upstream.PriorityLow)

	var dropped []interface{}
	q.DropExcessLow(2, func(item interface{}) { dropped = append(dropped, item) })

	require.Equal(t, []interface{}{"low-1", "low-2"}, dropped, "the oldest LOW items are shed, in order, until the queue is back within its bound")
	require.Equal(t, 2, q.Len())

	item, ok := q.Next()
	require.True(t, ok)
	require.Equal(t, "high-1", item, "HIGH must never be shed by the depth bound and stays head of its class")
}

func TestPriorityQueue_DropExcessLowNeverTouchesHigherPriority(t *testing.T) {
	q := upstream.NewPriorityQueue()
	q.Add("critical-1", upstream.PriorityCritical)
	q.Add("medium-1", upstream.PriorityMedium)

	var dropped []interface{}
	q.DropExcessLow(0, func(item interface{}) { dropped = append(dropped, item) })
	require.Empty(t, dropped, "maxDepth<=0 disables the bound entirely")

	q.DropExcessLow(1, func(item interface{}) { dropped = append(dropped, item) })
	require.Empty(t, dropped, "no LOW items are queued, so CRITICAL/MEDIUM must survive even over the bound")
	require.Equal(t, 2, q.Len())
}
