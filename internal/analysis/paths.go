package analysis

import (
	"container/heap"
	"math"
	"math/big"
	"sort"

	"github.com/rawblock/substrate-graph-sleuth/internal/graphquery"
)

const (
	WeightHops   = "hops"
	WeightVolume = "volume"
)

// Path is one route between two addresses.
type Path struct {
	Nodes  []string
	Hops   int
	Volume float64 // bottleneck (min-edge) volume along the path, for WeightVolume mode
	Score  float64
}

// ShortestPath finds the best path from→to bounded by maxDepth hops.
// Mode "hops" is plain BFS (unit weights); mode "volume" maximizes the
// bottleneck edge volume via a modified Dijkstra (widest path).
func ShortestPath(from, to string, edges []graphquery.Edge, mode string, maxDepth int) (Path, bool) {
	if from == to {
		return Path{Nodes: []string{from}, Hops: 0}, true
	}
	adj := buildWeightedAdjacency(edges)

	if mode == WeightVolume {
		return widestPath(from, to, adj, maxDepth)
	}
	return bfsShortest(from, to, adj, maxDepth)
}

type weightedEdge struct {
	to     string
	volume float64
}

func buildWeightedAdjacency(edges []graphquery.Edge) map[string][]weightedEdge {
	adj := make(map[string][]weightedEdge)
	for _, e := range edges {
		v := 0.0
		if e.Volume != nil {
			v, _ = new(big.Float).SetInt(e.Volume).Float64()
		}
		adj[e.From] = append(adj[e.From], weightedEdge{to: e.To, volume: v})
		adj[e.To] = append(adj[e.To], weightedEdge{to: e.From, volume: v})
	}
	return adj
}

func bfsShortest(from, to string, adj map[string][]weightedEdge, maxDepth int) (Path, bool) {
	type frame struct {
		node string
		path []string
	}
	visited := map[string]bool{from: true}
	queue := []frame{{node: from, path: []string{from}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if len(cur.path)-1 >= maxDepth {
			continue
		}
		for _, edge := range adj[cur.node] {
			if visited[edge.to] {
				continue
			}
			newPath := append(append([]string{}, cur.path...), edge.to)
			if edge.to == to {
				return Path{Nodes: newPath, Hops: len(newPath) - 1}, true
			}
			visited[edge.to] = true
			queue = append(queue, frame{node: edge.to, path: newPath})
		}
	}
	return Path{}, false
}

// widestPathItem is a priority-queue entry: maximize bottleneck volume.
type widestPathItem struct {
	node       string
	bottleneck float64
	path       []string
}

type widestPathQueue []widestPathItem

func (q widestPathQueue) Len() int            { return len(q) }
func (q widestPathQueue) Less(i, j int) bool  { return q[i].bottleneck > q[j].bottleneck }
func (q widestPathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *widestPathQueue) Push(x interface{}) { *q = append(*q, x.(widestPathItem)) }
func (q *widestPathQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func widestPath(from, to string, adj map[string][]weightedEdge, maxDepth int) (Path, bool) {
	pq := &widestPathQueue{{node: from, bottleneck: math.Inf(1), path: []string{from}}}
	best := make(map[string]float64)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(widestPathItem)
		if item.node == to {
			return Path{Nodes: item.path, Hops: len(item.path) - 1, Volume: item.bottleneck}, true
		}
		if len(item.path)-1 >= maxDepth {
			continue
		}
		if b, ok := best[item.node]; ok && b >= item.bottleneck {
			continue
		}
		best[item.node] = item.bottleneck

		for _, edge := range adj[item.node] {
			if containsStr(item.path, edge.to) {
				continue
			}
			newBottleneck := math.Min(item.bottleneck, edge.volume)
			newPath := append(append([]string{}, item.path...), edge.to)
			heap.Push(pq, widestPathItem{node: edge.to, bottleneck: newBottleneck, path: newPath})
		}
	}
	return Path{}, false
}

func containsStr(path []string, addr string) bool {
	for _, p := range path {
		if p == addr {
			return true
		}
	}
	return false
}

// FindAllPaths returns up to k distinct simple paths from→to bounded
// by maxDepth, scored by 100 − 10·hops + min(50, 10·log10(totalVolume/1e12)),
// highest score first.
func FindAllPaths(from, to string, edges []graphquery.Edge, maxDepth, k int) []Path {
	adj := buildWeightedAdjacency(edges)
	var results []Path

	var dfs func(node string, path []string, minVolume, totalVolume float64)
	dfs = func(node string, path []string, minVolume, totalVolume float64) {
		if len(results) >= k*4 { // bound search effort; final top-k selected by score below
			return
		}
		if node == to && len(path) > 1 {
			hops := len(path) - 1
			score := 100 - 10*float64(hops) + math.Min(50, 10*safeLog10(totalVolume/1e12))
			results = append(results, Path{Nodes: append([]string{}, path...), Hops: hops, Volume: minVolume, Score: score})
			return
		}
		if len(path)-1 >= maxDepth {
			return
		}
		for _, edge := range adj[node] {
			if containsStr(path, edge.to) {
				continue
			}
			nextMin := math.Min(minVolume, edge.volume)
			dfs(edge.to, append(path, edge.to), nextMin, totalVolume+edge.volume)
		}
	}
	dfs(from, []string{from}, math.Inf(1), 0)

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func safeLog10(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log10(v)
}
