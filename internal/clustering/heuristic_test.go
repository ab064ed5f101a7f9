package clustering_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/clustering"
	"github.com/rawblock/substrate-graph-sleuth/internal/graphquery"
)

func TestClusterGraph_MergesTightBidirectionalPair(t *testing.T) {
	edges := []graphquery.Edge{
		{From: "a", To: "b", Volume: big.NewInt(100), Count: 5, Bidirectional: true},
		{From: "x", To: "y", Volume: big.NewInt(100), Count: 1, Bidirectional: false},
	}
	clusters := clustering.ClusterGraph(edges, 5.0)
	require.Len(t, clusters, 1)
	require.ElementsMatch(t, []string{"a", "b"}, clusters[0].Addresses)
}

func TestClusterGraph_MergesHighVolumeOutlier(t *testing.T) {
	edges := []graphquery.Edge{
		{From: "a", To: "b", Volume: big.NewInt(100)},
		{From: "c", To: "d", Volume: big.NewInt(100)},
		{From: "e", To: "f", Volume: big.NewInt(10000)}, // far above the median
	}
	clusters := clustering.ClusterGraph(edges, 5.0)
	require.Len(t, clusters, 1)
	require.ElementsMatch(t, []string{"e", "f"}, clusters[0].Addresses)
}

func TestClusterGraph_LeavesWeakEdgesUnclustered(t *testing.T) {
	edges := []graphquery.Edge{
		{From: "a", To: "b", Volume: big.NewInt(100), Count: 1, Bidirectional: false},
	}
	clusters := clustering.ClusterGraph(edges, 5.0)
	require.Empty(t, clusters)
}

func TestClusterGraph_EmptyInput(t *testing.T) {
	require.Nil(t, clustering.ClusterGraph(nil, 5.0))
}
