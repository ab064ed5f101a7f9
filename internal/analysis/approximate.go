package analysis

import "github.com/rawblock/substrate-graph-sleuth/internal/graphquery"

// ApproximationBound documents, per spec.md §4.11, that Betweenness,
// PageRank, and Closeness below are computed strictly over the graph
// snapshot passed in — a bounded local neighborhood, never the full
// chain — so they are directional estimates of relative importance
// within that snapshot, not chain-wide centrality measures.
const ApproximationBound = "approximate: computed over the local graph snapshot only, not the full chain"

// CentralityBundle is the metrics response for one address: its
// degree centrality plus its approximate standing on the snapshot's
// betweenness/PageRank/closeness rankings.
type CentralityBundle struct {
	Degree      *Degree
	Betweenness float64
	PageRank    float64
	Closeness   float64
	Scope       string
	Approximate bool
}

// Betweenness approximates betweenness centrality via unweighted BFS
// shortest-path counting over the snapshot — exact for this bounded
// node set, but "approximate" relative to the full chain it's a
// snapshot of.
func Betweenness(nodes []graphquery.Node, edges []graphquery.Edge) map[string]float64 {
	adj := buildAdjacency(edges)
	scores := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		scores[n.Address] = 0
	}

	addrs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		addrs = append(addrs, n.Address)
	}

	for _, s := range addrs {
		dist, paths, order := bfsPathCounts(s, adj)
		dependency := make(map[string]float64, len(addrs))
		for i := len(order) - 1; i >= 0; i-- {
			w := order[i]
			for _, v := range adj[w] {
				if dist[v] == dist[w]-1 {
					ratio := 0.0
					if paths[w] > 0 {
						ratio = paths[v] / paths[w] * (1 + dependency[w])
					}
					dependency[v] += ratio
				}
			}
			if w != s {
				scores[w] += dependency[w]
			}
		}
	}
	return scores
}

func bfsPathCounts(source string, adj map[string][]string) (dist map[string]int, paths map[string]float64, order []string) {
	dist = map[string]int{source: 0}
	paths = map[string]float64{source: 1}
	queue := []string{source}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, w := range adj[v] {
			if _, ok := dist[w]; !ok {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
			if dist[w] == dist[v]+1 {
				paths[w] += paths[v]
			}
		}
	}
	return
}

// PageRank runs a fixed small number of power-iteration steps over the
// snapshot's adjacency — enough to rank nodes within the bounded graph,
// not to converge to chain-wide stationary values.
func PageRank(nodes []graphquery.Node, edges []graphquery.Edge, iterations int, damping float64) map[string]float64 {
	if iterations <= 0 {
		iterations = 20
	}
	if damping <= 0 {
		damping = 0.85
	}
	adj := buildAdjacency(edges)
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	for _, node := range nodes {
		rank[node.Address] = 1.0 / float64(n)
	}

	for i := 0; i < iterations; i++ {
		next := make(map[string]float64, n)
		for _, node := range nodes {
			next[node.Address] = (1 - damping) / float64(n)
		}
		for _, node := range nodes {
			neighbors := adj[node.Address]
			if len(neighbors) == 0 {
				continue
			}
			share := damping * rank[node.Address] / float64(len(neighbors))
			for _, nb := range neighbors {
				next[nb] += share
			}
		}
		rank = next
	}
	return rank
}

// Closeness approximates closeness centrality as the inverse of the
// average BFS hop distance to every other reachable node in the
// snapshot; unreachable nodes are excluded from the average.
func Closeness(nodes []graphquery.Node, edges []graphquery.Edge) map[string]float64 {
	adj := buildAdjacency(edges)
	out := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		dist, _, _ := bfsPathCounts(n.Address, adj)
		sum, count := 0, 0
		for addr, d := range dist {
			if addr == n.Address {
				continue
			}
			sum += d
			count++
		}
		if count == 0 || sum == 0 {
			out[n.Address] = 0
			continue
		}
		out[n.Address] = float64(count) / float64(sum)
	}
	return out
}
