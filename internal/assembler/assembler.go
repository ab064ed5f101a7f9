// Package assembler implements the Graph Assembler (spec.md §4.10):
// it validates and charges a graph request, resolves the center
// account from the store (falling back to the upstream indexer when
// stale), executes the traversal, and transforms the result into the
// wire GraphPayload shape with its accompanying metadata and cursor.
package assembler

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/rawblock/substrate-graph-sleuth/internal/analysis"
	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
	"github.com/rawblock/substrate-graph-sleuth/internal/clustering"
	"github.com/rawblock/substrate-graph-sleuth/internal/graphquery"
	"github.com/rawblock/substrate-graph-sleuth/internal/guard"
	"github.com/rawblock/substrate-graph-sleuth/internal/ratelimit"
	"github.com/rawblock/substrate-graph-sleuth/internal/store"
	"github.com/rawblock/substrate-graph-sleuth/internal/upstream"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
	"github.com/rs/zerolog"
)

// StalenessThreshold is how long since Account.UpdatedAt before the
// assembler considers a center stale enough to re-fetch from upstream.
const StalenessThreshold = 24 * time.Hour

// highVolumeClusterFactor is how many times the snapshot's median edge
// volume an edge must carry before it's treated as common-control
// evidence on its own (spec.md §3's enableClustering option).
const highVolumeClusterFactor = 5.0

// defaultHighRiskThreshold is the riskScore floor used to count a node
// toward GraphMetadata.HighRiskNodeCount when the caller didn't supply
// riskThreshold.
const defaultHighRiskThreshold = 70

// tightBidirectionalEdgeCount mirrors clustering's common-control
// signal (internal/clustering's tightBidirectionalMinCount): a
// bidirectional edge with at least this many transfers, counted across
// both directions combined, is flagged suspicious on its own. The
// per-direction split is not checked.
const tightBidirectionalEdgeCount = 3

// clusteringSampleSize bounds the clustering-coefficient sample per
// spec.md §4.10 step 5.
const clusteringSampleSize = 10

var validLayouts = map[string]bool{"force": true, "circular": true, "hierarchical": true, "radial": true}

// Request is one graph-assembly request.
type Request struct {
	CallerID          string
	Address           string
	Depth             int
	MaxNodes          int
	MinVolume         *big.Int
	Direction         string
	FilterCount       int
	Days              int
	IncludeRiskScores bool
	RiskThreshold     int
	NodeTypes         []string
	StartTime         *time.Time
	EndTime           *time.Time
	Layout            string
	EnableClustering  bool
}

// Assembler wires the store, traversal engine, cost limiter, recursive
// query guard, and (optionally nil, when SKIP_UPSTREAM is set) upstream
// client into the single graph-assembly operation.
type Assembler struct {
	store    *store.Store
	engine   *graphquery.Engine
	upstream *upstream.Client
	cost     *ratelimit.CostLimiter
	guard    *guard.Guard
	log      zerolog.Logger
	complexityCap float64
}

// New builds an Assembler. upstreamClient may be nil when upstream
// fetching is disabled.
func New(s *store.Store, cost *ratelimit.CostLimiter, g *guard.Guard, upstreamClient *upstream.Client, complexityCap float64, log zerolog.Logger) *Assembler {
	return &Assembler{
		store: s, engine: graphquery.New(s), upstream: upstreamClient,
		cost: cost, guard: g, complexityCap: complexityCap, log: log,
	}
}

// Assemble executes the full graph-assembly pipeline for req.
func (a *Assembler) Assemble(ctx context.Context, req Request) (models.GraphPayload, error) {
	depth := clamp(req.Depth, 1, 4)
	maxNodes := clamp(req.MaxNodes, 10, 500)

	if _, err := a.checkComplexity(depth, maxNodes, req.FilterCount, req.Days); err != nil {
		return models.GraphPayload{}, err
	}
	if err := a.cost.Admit(req.CallerID, ratelimit.CostGraphQuery); err != nil {
		return models.GraphPayload{}, err
	}

	if err := a.resolveCenter(ctx, req.Address); err != nil {
		return models.GraphPayload{}, err
	}

	result, err := a.traverse(ctx, req.Address, depth, maxNodes, req.MinVolume)
	if err != nil {
		return models.GraphPayload{}, err
	}
	if len(result.Nodes) == 0 {
		result, err = a.engine.Fallback(ctx, req.Address)
		if err != nil {
			return models.GraphPayload{}, err
		}
	}

	return a.toPayload(ctx, req, depth, result)
}

func (a *Assembler) checkComplexity(depth, maxNodes, filters, days int) (float64, error) {
	cap := a.complexityCap
	score := float64(depth)*math.Log10(float64(maxNodes+1)) + 0.5*float64(filters) + math.Log10(float64(days+1))
	if cap <= 0 {
		cap = 10
	}
	if score > cap {
		return score, apierr.New(apierr.CodeQueryTooComplex, "query exceeds complexity cap").
			WithDetails(map[string]interface{}{"score": score, "cap": cap})
	}
	return score, nil
}

func (a *Assembler) resolveCenter(ctx context.Context, address string) error {
	acct, err := a.store.GetAccount(ctx, address)
	stale := err == store.ErrNotFound || (err == nil && acct.IsStale(StalenessThreshold, time.Now()))
	if err != nil && err != store.ErrNotFound {
		return err
	}

	if stale && a.upstream != nil {
		resp, uerr := a.upstream.GetAccount(ctx, address)
		if uerr != nil {
			if err == store.ErrNotFound {
				return apierr.New(apierr.CodeAddressNotFound, "address not found locally and upstream fetch failed")
			}
			a.log.Warn().Err(uerr).Str("address", address).Msg("upstream refresh failed, serving stale local data")
			return nil
		}
		newAcct := models.Account{
			Address: resp.Address, Balance: resp.Balance,
			FirstSeenBlock: resp.FirstSeenBlock, LastSeenBlock: resp.LastSeenBlock,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}
		if resp.Identity != nil {
			newAcct.Identity = &models.Identity{Display: resp.Identity.Display, IsVerified: resp.Identity.Verified}
		}
		if err := a.store.UpsertAccount(ctx, newAcct); err != nil {
			return err
		}
		a.backfillTransfersAsync(address)
		return nil
	}

	if err == store.ErrNotFound {
		return apierr.New(apierr.CodeAddressNotFound, "address not found")
	}
	return nil
}

// backfillMaxRows bounds the single upstream page fetched to refresh an
// address's locally recorded transfers on a cache-stale hit.
const backfillMaxRows = 100

// backfillTransfersAsync runs backfillTransfers on a detached
// background context so a cache-stale graph request isn't held up by
// an upstream page fetch plus up to backfillMaxRows store writes: the
// caller already has a usable (if incomplete) local graph to serve
// immediately, and this exists only to freshen the store for next time.
// The background context carries its own timeout rather than the
// request's, since the request context is cancelled the moment the
// response is written.
func (a *Assembler) backfillTransfersAsync(address string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.backfillTransfers(ctx, address)
	}()
}

// backfillTransfers fetches one bounded page of address's recent
// transfers from upstream and folds each into the store. It is
// best-effort: an upstream or store failure is logged and otherwise
// ignored, since the caller already has a usable (if incomplete) local
// graph to serve.
func (a *Assembler) backfillTransfers(ctx context.Context, address string) {
	resp, err := a.upstream.GetTransfers(ctx, address, upstream.TransferQuery{Page: 1, Rows: backfillMaxRows, Direction: upstream.DirectionBoth})
	if err != nil {
		a.log.Warn().Err(err).Str("address", address).Msg("upstream transfer backfill failed")
		return
	}
	for _, t := range resp.Transfers {
		transfer := models.Transfer{
			BlockNumber: t.BlockNumber,
			BlockTime:   time.Unix(t.Timestamp, 0).UTC(),
			FromAddress: t.From,
			ToAddress:   t.To,
			Amount:      t.Amount,
			TxHash:      t.TxHash,
			EventIndex:  t.EventIndex,
		}
		if _, err := a.store.IngestTransfer(ctx, transfer); err != nil {
			a.log.Warn().Err(err).Str("address", address).Msg("transfer backfill ingest failed")
		}
	}
}

func (a *Assembler) traverse(ctx context.Context, center string, depth, maxNodes int, minVolume *big.Int) (graphquery.Result, error) {
	queryID := fmt.Sprintf("graph:%s:%d:%d", center, depth, maxNodes)
	var result graphquery.Result

	_, gerr := a.guard.Run(ctx, guard.Options{QueryID: queryID}, func(ctx context.Context, out chan<- guard.Row) error {
		var err error
		if depth == 1 {
			result, err = a.engine.Direct(ctx, center, minVolume, maxNodes)
		} else {
			result, err = a.engine.MultiHop(ctx, center, minVolume, depth, maxNodes)
		}
		for _, n := range result.Nodes {
			select {
			case out <- n:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return err
	})
	if gerr != nil {
		return graphquery.Result{}, gerr
	}
	return result, nil
}

func (a *Assembler) toPayload(ctx context.Context, req Request, depth int, result graphquery.Result) (models.GraphPayload, error) {
	typeFilter := nodeTypeFilter(req.NodeTypes)

	inDegree := make(map[string]int)
	outDegree := make(map[string]int)
	volume := make(map[string]*big.Int)

	edges := make([]models.GraphEdge, 0, len(result.Edges))
	filteredEdges := make([]graphquery.Edge, 0, len(result.Edges))
	var earliest, latest *time.Time
	edgesOmitted := 0
	for _, e := range result.Edges {
		if typeFilter != nil && (!typeFilter[nodeType(e.From, req.Address)] || !typeFilter[nodeType(e.To, req.Address)]) {
			edgesOmitted++
			continue
		}

		edgeVolume, edgeCount, firstBlock, lastBlock := e.Volume, e.Count, e.FirstBlock, e.LastBlock
		if req.StartTime != nil || req.EndTime != nil {
			v, c, fb, lb, err := a.store.TransferWindowStats(ctx, e.From, e.To, req.StartTime, req.EndTime)
			if err != nil {
				return models.GraphPayload{}, err
			}
			if c == 0 {
				edgesOmitted++
				continue
			}
			edgeVolume, edgeCount, firstBlock, lastBlock = v, c, fb, lb
		}

		inDegree[e.To]++
		outDegree[e.From]++
		addVolume(volume, e.From, edgeVolume)
		addVolume(volume, e.To, edgeVolume)

		firstTransfer, lastTransfer := a.blockTimeRange(ctx, firstBlock, lastBlock)
		if firstTransfer != nil && (earliest == nil || firstTransfer.Before(*earliest)) {
			earliest = firstTransfer
		}
		if lastTransfer != nil && (latest == nil || lastTransfer.After(*latest)) {
			latest = lastTransfer
		}

		suspicious := e.Bidirectional && edgeCount >= tightBidirectionalEdgeCount
		var patternType string
		if suspicious {
			patternType = "bidirectional_tight"
		}

		edges = append(edges, models.GraphEdge{
			ID:                edgeID(e.From, e.To),
			Source:            e.From,
			Target:            e.To,
			Count:             edgeCount,
			Volume:            volumeString(edgeVolume),
			EdgeType:          models.EdgeTypeTransfer,
			FirstTransfer:     firstTransfer,
			LastTransfer:      lastTransfer,
			SuspiciousPattern: suspicious,
			PatternType:       patternType,
			SuggestedWidth:    1 + math.Min(10, float64(edgeVolume.BitLen())/4),
			SuggestedColor:    "#999999",
			SuggestedOpacity:  0.6,
			Bidirectional:     e.Bidirectional,
		})
		filteredEdges = append(filteredEdges, graphquery.Edge{
			From: e.From, To: e.To, Volume: edgeVolume, Count: edgeCount,
			Bidirectional: e.Bidirectional, FirstBlock: firstBlock, LastBlock: lastBlock,
		})
	}

	riskThreshold := req.RiskThreshold
	if riskThreshold <= 0 {
		riskThreshold = defaultHighRiskThreshold
	}

	nodes := make([]models.GraphNode, 0, len(result.Nodes))
	nodesOmitted := 0
	highRiskCount := 0
	suspiciousEdgeCount := 0
	for _, e := range edges {
		if e.SuspiciousPattern {
			suspiciousEdgeCount++
		}
	}
	for _, n := range result.Nodes {
		nt := nodeType(n.Address, req.Address)
		if typeFilter != nil && !typeFilter[nt] {
			nodesOmitted++
			continue
		}

		acct, err := a.store.GetAccount(ctx, n.Address)
		deg := inDegree[n.Address] + outDegree[n.Address]
		node := models.GraphNode{
			Address:        n.Address,
			HopLevel:       n.HopLevel,
			Degree:         deg,
			InDegree:       inDegree[n.Address],
			OutDegree:      outDegree[n.Address],
			NodeType:       nt,
			TotalVolume:    volumeString(volume[n.Address]),
			SuggestedSize:  10 + math.Min(40, float64(deg)*2),
			SuggestedColor: colorFor(n.Address, req.Address),
		}
		if err == nil {
			node.Balance = models.Balance{Free: acct.Balance}
			if acct.Identity != nil {
				node.Identity = &models.IdentitySummary{Display: acct.Identity.Display, IsConfirmed: acct.Identity.IsVerified}
			}
			if req.IncludeRiskScores && acct.RiskScore != nil {
				node.RiskScore = acct.RiskScore
				node.SuggestedColor = riskColor(*acct.RiskScore)
				if *acct.RiskScore >= riskThreshold {
					highRiskCount++
				}
			}
		}
		nodes = append(nodes, node)
	}

	n := len(nodes)
	m := len(edges)
	density := 0.0
	if n > 1 {
		density = float64(m) / float64(n*(n-1))
	}

	var clusters []models.Cluster
	if req.EnableClustering {
		clusters = clustering.ClusterGraph(filteredEdges, highVolumeClusterFactor)
	}

	var cursorStr string
	if result.HasMore {
		last := lastFrontier(result.Nodes, 5)
		shown := make([]string, 0, len(nodes))
		for _, nd := range nodes {
			shown = append(shown, nd.Address)
		}
		// CurrentDepth names the hop the next batch expands into (see
		// Expand): one past the hop of the frontier nodes in LastNodes.
		frontierHop := 0
		for _, nd := range result.Nodes {
			if nd.HopLevel > frontierHop {
				frontierHop = nd.HopLevel
			}
		}
		cursorStr = EncodeCursor(Cursor{CenterAddress: req.Address, CurrentDepth: frontierHop + 1, LastNodes: last, ExcludeNodes: shown})
	}

	suggestedLayoutValue := suggestedLayout(n, density)
	if validLayouts[req.Layout] {
		suggestedLayoutValue = req.Layout
	}

	payload := models.GraphPayload{
		Nodes:    nodes,
		Edges:    edges,
		Clusters: clusters,
		Layout: models.Layout{ForceParameters: models.ForceParameters{
			ChargeStrength: -200, LinkDistance: 80, LinkStrength: 1, CenterX: 0, CenterY: 0,
		}},
		Metadata: models.GraphMetadata{
			TotalNodes:                   n,
			TotalEdges:                   m,
			NetworkDensity:               density,
			AverageClusteringCoefficient: analysis.AverageClusteringCoefficient(result.Nodes, result.Edges, clusteringSampleSize),
			CenterNode:                   req.Address,
			RequestedDepth:               req.Depth,
			ActualDepth:                  depth,
			HasMore:                      result.HasMore,
			NextCursor:                   cursorStr,
			NodesOmitted:                 nodesOmitted,
			EdgesOmitted:                 edgesOmitted,
			RenderingComplexity:          complexityBand(n),
			SuggestedLayout:              suggestedLayoutValue,
			HighRiskNodeCount:            highRiskCount,
			SuspiciousEdgeCount:          suspiciousEdgeCount,
			EarliestTransfer:             earliest,
			LatestTransfer:               latest,
		},
	}
	return payload, nil
}

// blockTimeRange resolves the wall-clock range for an edge's
// first/last transfer block, tolerating lookup failures by omitting
// the corresponding timestamp rather than failing the whole request.
func (a *Assembler) blockTimeRange(ctx context.Context, firstBlock, lastBlock int64) (*time.Time, *time.Time) {
	var first, last *time.Time
	if firstBlock > 0 {
		if t, err := a.store.BlockTimestamp(ctx, firstBlock); err == nil && !t.IsZero() {
			first = &t
		}
	}
	if lastBlock > 0 {
		if t, err := a.store.BlockTimestamp(ctx, lastBlock); err == nil && !t.IsZero() {
			last = &t
		}
	}
	return first, last
}

// nodeTypeFilter builds an allow-set from the caller's nodeTypes
// filter, or nil when no filter was requested (meaning: keep
// everything).
func nodeTypeFilter(types []string) map[string]bool {
	if len(types) == 0 {
		return nil
	}
	out := make(map[string]bool, len(types))
	for _, t := range types {
		out[t] = true
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func addVolume(m map[string]*big.Int, addr string, v *big.Int) {
	if v == nil {
		return
	}
	if existing, ok := m[addr]; ok {
		existing.Add(existing, v)
		return
	}
	m[addr] = new(big.Int).Set(v)
}

func volumeString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func nodeType(addr, center string) string {
	if addr == center {
		return "center"
	}
	return "neighbor"
}

func colorFor(addr, center string) string {
	if addr == center {
		return "#4287f5"
	}
	return "#8c8c8c"
}

func riskColor(score int) string {
	switch {
	case score >= 70:
		return "#d62728"
	case score >= 30:
		return "#ff9800"
	default:
		return "#8c8c8c"
	}
}

func edgeID(from, to string) string {
	h := sha1.Sum([]byte(from + "->" + to))
	return hex.EncodeToString(h[:8])
}

func complexityBand(n int) string {
	switch {
	case n <= 50:
		return "low"
	case n <= 200:
		return "medium"
	default:
		return "high"
	}
}

func suggestedLayout(n int, density float64) string {
	switch {
	case n < 20:
		return "circular"
	case density > 0.1:
		return "hierarchical"
	default:
		return "force"
	}
}

func lastFrontier(nodes []graphquery.Node, n int) []string {
	maxHop := 0
	for _, node := range nodes {
		if node.HopLevel > maxHop {
			maxHop = node.HopLevel
		}
	}
	var frontier []string
	for _, node := range nodes {
		if node.HopLevel == maxHop {
			frontier = append(frontier, node.Address)
		}
	}
	sort.Strings(frontier)
	if len(frontier) > n {
		frontier = frontier[len(frontier)-n:]
	}
	return frontier
}
