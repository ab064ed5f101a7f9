// Package graphquery implements the two traversal modes over the
// relational store: direct (depth=1) neighbor lookup and multi-hop BFS
// expansion, plus circular-flow cycle detection and the
// AccountStats-driven fallback view used when a traversal produces no
// nodes (spec.md §4.9).
package graphquery

import (
	"context"
	"math"
	"math/big"
	"sort"

	"github.com/rawblock/substrate-graph-sleuth/internal/store"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// Node is one traversal result, carrying the hop level at which it was
// first reached.
type Node struct {
	Address  string
	HopLevel int
}

// Edge aggregates all transfer volume between two addresses in a
// single direction pair set; Bidirectional is true when both (a,b) and
// (b,a) transfer_stats rows exist.
type Edge struct {
	From, To      string
	Volume        *big.Int
	Count         int64
	Bidirectional bool
	FirstBlock    int64
	LastBlock     int64
}

// Result is one traversal's output: the node set (with the center
// always present at hop 0), the edge set, and whether more candidates
// exist beyond the node budget (used to decide whether to emit a
// cursor).
type Result struct {
	Nodes   []Node
	Edges   []Edge
	HasMore bool
}

// Engine executes traversals against a Store.
type Engine struct {
	store *store.Store
}

// New builds an Engine over s.
func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Direct performs a depth=1 traversal: counterparties of center with
// total_amount ≥ minVolume, ordered by volume descending, capped at
// maxNodes-1 (the center itself occupies one slot).
func (e *Engine) Direct(ctx context.Context, center string, minVolume *big.Int, maxNodes int) (Result, error) {
	budget := maxNodes - 1
	if budget < 0 {
		budget = 0
	}

	stats, err := e.store.TopCounterparties(ctx, center, minVolume, budget+1)
	if err != nil {
		return Result{}, err
	}

	agg := aggregateByCounterparty(center, stats)
	hasMore := len(agg) > budget
	if len(agg) > budget {
		agg = agg[:budget]
	}

	nodes := []Node{{Address: center, HopLevel: 0}}
	edges := make([]Edge, 0, len(agg))
	for _, a := range agg {
		nodes = append(nodes, Node{Address: a.counterparty, HopLevel: 1})
		edges = append(edges, Edge{
			From: center, To: a.counterparty, Volume: a.volume, Count: a.count,
			Bidirectional: a.bidirectional, FirstBlock: a.firstBlock, LastBlock: a.lastBlock,
		})
	}

	return Result{Nodes: nodes, Edges: edges, HasMore: hasMore}, nil
}

// MultiHop performs a frontier-by-frontier BFS out to depth hops,
// spending the node budget across frontiers: at each hop, each
// frontier node's top-K counterparties are fetched, K = remaining
// budget ÷ frontier size (min 1). Edges are included only when both
// endpoints made it into the final node set.
func (e *Engine) MultiHop(ctx context.Context, center string, minVolume *big.Int, depth, maxNodes int) (Result, error) {
	seen := map[string]int{center: 0}
	order := []string{center}
	frontier := []string{center}
	hasMore := false

	for hop := 1; hop <= depth; hop++ {
		if len(frontier) == 0 {
			break
		}
		remaining := maxNodes - len(seen)
		if remaining <= 0 {
			hasMore = true
			break
		}
		k := remaining / len(frontier)
		if k < 1 {
			k = 1
		}

		var nextFrontier []string
		for _, node := range frontier {
			stats, err := e.store.TopCounterparties(ctx, node, minVolume, k+1)
			if err != nil {
				return Result{}, err
			}
			agg := aggregateByCounterparty(node, stats)
			if len(agg) > k {
				hasMore = true
				agg = agg[:k]
			}
			for _, a := range agg {
				if _, ok := seen[a.counterparty]; ok {
					continue
				}
				if len(seen) >= maxNodes {
					hasMore = true
					break
				}
				seen[a.counterparty] = hop
				order = append(order, a.counterparty)
				nextFrontier = append(nextFrontier, a.counterparty)
			}
		}
		frontier = nextFrontier
	}
	if len(frontier) > 0 {
		hasMore = true
	}

	nodes := make([]Node, 0, len(order))
	for _, addr := range order {
		nodes = append(nodes, Node{Address: addr, HopLevel: seen[addr]})
	}

	edges, err := e.edgesAmong(ctx, order, minVolume)
	if err != nil {
		return Result{}, err
	}

	return Result{Nodes: nodes, Edges: edges, HasMore: hasMore}, nil
}

// edgesAmong fetches the induced edge set over a node set: every
// transfer_stats pair where both endpoints are present.
func (e *Engine) edgesAmong(ctx context.Context, addrs []string, minVolume *big.Int) ([]Edge, error) {
	inSet := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		inSet[a] = struct{}{}
	}

	edgeAgg := make(map[[2]string]*aggregatedEdge)
	seenRows := make(map[[2]string]struct{})
	for _, a := range addrs {
		// The induced edge set needs every counterparty row for a that
		// might land in inSet, not just a's top-K rows by volume:
		// TopCounterparties sorts and truncates before this function
		// ever sees the rows, so any cap here can push an
		// already-discovered in-set neighbor out of the returned set
		// whenever a has that many higher-volume counterparties
		// outside it, silently dropping a real edge. Fetch
		// unbounded and let the inSet membership check below do the
		// filtering.
		stats, err := e.store.TopCounterparties(ctx, a, minVolume, math.MaxInt32)
		if err != nil {
			return nil, err
		}
		for _, ts := range stats {
			var other string
			if ts.FromAddress == a {
				other = ts.ToAddress
			} else {
				other = ts.FromAddress
			}
			if _, ok := inSet[other]; !ok {
				continue
			}
			// Each directed transfer_stats row surfaces once per
			// endpoint's TopCounterparties call (it's a counterparty of
			// both its from- and to-address); only fold it into
			// edgeAgg the first time, or its volume/count double-count.
			rowKey := [2]string{ts.FromAddress, ts.ToAddress}
			if _, dup := seenRows[rowKey]; dup {
				continue
			}
			seenRows[rowKey] = struct{}{}

			key := orderedKey(a, other)
			volume, _ := new(big.Int).SetString(ts.TotalAmount, 10)
			if volume == nil {
				volume = big.NewInt(0)
			}
			existing, ok := edgeAgg[key]
			if !ok {
				edgeAgg[key] = &aggregatedEdge{from: key[0], to: key[1], volume: new(big.Int).Set(volume), count: ts.TransferCount, firstBlock: ts.FirstBlock, lastBlock: ts.LastBlock}
				continue
			}
			existing.volume.Add(existing.volume, volume)
			existing.count += ts.TransferCount
			if ts.FromAddress != existing.from {
				existing.bidirectional = true
			}
			if ts.FirstBlock < existing.firstBlock || existing.firstBlock == 0 {
				existing.firstBlock = ts.FirstBlock
			}
			if ts.LastBlock > existing.lastBlock {
				existing.lastBlock = ts.LastBlock
			}
		}
	}

	out := make([]Edge, 0, len(edgeAgg))
	for _, agg := range edgeAgg {
		out = append(out, Edge{
			From: agg.from, To: agg.to, Volume: agg.volume, Count: agg.count,
			Bidirectional: agg.bidirectional, FirstBlock: agg.firstBlock, LastBlock: agg.lastBlock,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Volume.Cmp(out[j].Volume) > 0 })
	return out, nil
}

func orderedKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

type aggregatedEdge struct {
	from, to      string
	volume        *big.Int
	count         int64
	bidirectional bool
	firstBlock    int64
	lastBlock     int64
}

type counterpartyAgg struct {
	counterparty  string
	volume        *big.Int
	count         int64
	bidirectional bool
	firstBlock    int64
	lastBlock     int64
}

// aggregateByCounterparty collapses transfer_stats rows touching
// center into one entry per counterparty, marking Bidirectional true
// when both directions exist, ordered by total volume descending.
func aggregateByCounterparty(center string, stats []models.TransferStats) []counterpartyAgg {
	agg := make(map[string]*counterpartyAgg)
	for _, ts := range stats {
		var cp string
		if ts.FromAddress == center {
			cp = ts.ToAddress
		} else {
			cp = ts.FromAddress
		}
		entry, ok := agg[cp]
		if !ok {
			entry = &counterpartyAgg{counterparty: cp, volume: big.NewInt(0), firstBlock: ts.FirstBlock, lastBlock: ts.LastBlock}
			agg[cp] = entry
		} else {
			entry.bidirectional = true
			if ts.FirstBlock < entry.firstBlock {
				entry.firstBlock = ts.FirstBlock
			}
			if ts.LastBlock > entry.lastBlock {
				entry.lastBlock = ts.LastBlock
			}
		}
		v, _ := new(big.Int).SetString(ts.TotalAmount, 10)
		if v != nil {
			entry.volume.Add(entry.volume, v)
		}
		entry.count += ts.TransferCount
	}

	out := make([]counterpartyAgg, 0, len(agg))
	for _, v := range agg {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].volume.Cmp(out[j].volume) > 0 })
	return out
}
