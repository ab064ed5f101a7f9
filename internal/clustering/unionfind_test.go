package clustering_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/clustering"
)

func TestEngine_UnionMergesClusters(t *testing.T) {
	e := clustering.NewEngine()
	require.True(t, e.Union("a", "b"))
	require.Equal(t, e.Find("a"), e.Find("b"))
}

func TestEngine_UnionIsIdempotent(t *testing.T) {
	e := clustering.NewEngine()
	require.True(t, e.Union("a", "b"))
	require.False(t, e.Union("a", "b"), "merging an already-joined pair reports no new merge")
}

func TestEngine_TransitiveMerge(t *testing.T) {
	e := clustering.NewEngine()
	e.Union("a", "b")
	e.Union("b", "c")
	require.Equal(t, e.Find("a"), e.Find("c"), "a and c must land in the same cluster via b")
}

func TestEngine_SingletonsExcludedFromClusters(t *testing.T) {
	e := clustering.NewEngine()
	e.Union("a", "b")
	e.Find("solo")

	clusters := e.Clusters()
	require.Len(t, clusters, 1)
	for _, members := range clusters {
		require.ElementsMatch(t, []string{"a", "b"}, members)
	}
}
