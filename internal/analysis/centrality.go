// Package analysis implements the Pattern / Metric Analyzer (spec.md
// §4.11): degree centrality, clustering coefficient, approximate
// betweenness/PageRank/closeness over a local graph snapshot, shortest
// and all-paths search, rapid-sequential and round-number pattern
// detection, and weighted risk synthesis.
package analysis

import (
	"math/big"

	"github.com/rawblock/substrate-graph-sleuth/internal/graphquery"
)

// Degree holds the in/out/total/weighted-degree centrality bundle for
// one node.
type Degree struct {
	Address        string
	InDegree       int
	OutDegree      int
	TotalDegree    int
	WeightedDegree *big.Int
}

// DegreeCentrality computes in/out/total/weighted degree for every
// node in the given edge set. O(|edges|).
func DegreeCentrality(nodes []graphquery.Node, edges []graphquery.Edge) map[string]*Degree {
	out := make(map[string]*Degree, len(nodes))
	for _, n := range nodes {
		out[n.Address] = &Degree{Address: n.Address, WeightedDegree: big.NewInt(0)}
	}
	for _, e := range edges {
		if d, ok := out[e.From]; ok {
			d.OutDegree++
			d.TotalDegree++
			d.WeightedDegree.Add(d.WeightedDegree, e.Volume)
		}
		if d, ok := out[e.To]; ok {
			d.InDegree++
			d.TotalDegree++
			d.WeightedDegree.Add(d.WeightedDegree, e.Volume)
		}
		if e.Bidirectional {
			// both directions already counted once each above; nothing further.
			_ = e
		}
	}
	return out
}

// ClusteringCoefficient returns, for node v, the fraction of possible
// edges among v's neighbors that actually exist.
func ClusteringCoefficient(v string, edges []graphquery.Edge) float64 {
	adjacency := buildAdjacency(edges)
	neighbors := adjacency[v]
	if len(neighbors) < 2 {
		return 0
	}

	neighborSet := make(map[string]struct{}, len(neighbors))
	for _, n := range neighbors {
		neighborSet[n] = struct{}{}
	}

	links := 0
	for _, a := range neighbors {
		for _, b := range adjacency[a] {
			if _, ok := neighborSet[b]; ok && b != v {
				links++
			}
		}
	}
	possible := len(neighbors) * (len(neighbors) - 1)
	if possible == 0 {
		return 0
	}
	return float64(links) / float64(possible)
}

// AverageClusteringCoefficient samples up to maxSamples nodes (spec.md
// §4.10 bounds this to ≤10) and averages their coefficients, to bound
// the cost of computing this for every node in a large graph.
func AverageClusteringCoefficient(nodes []graphquery.Node, edges []graphquery.Edge, maxSamples int) float64 {
	if len(nodes) == 0 {
		return 0
	}
	sampled := nodes
	if len(sampled) > maxSamples {
		sampled = sampled[:maxSamples]
	}
	sum := 0.0
	for _, n := range sampled {
		sum += ClusteringCoefficient(n.Address, edges)
	}
	return sum / float64(len(sampled))
}

func buildAdjacency(edges []graphquery.Edge) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
		adj[e.To] = append(adj[e.To], e.From)
	}
	return adj
}
