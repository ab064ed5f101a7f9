package assembler

import (
	"context"
	"math/big"

	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
	"github.com/rawblock/substrate-graph-sleuth/internal/ratelimit"
	"github.com/rawblock/substrate-graph-sleuth/internal/store"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

const maxFrontierPerBatch = 5

// ExpandResult is one progressive-expansion batch: only the nodes and
// edges new to the caller since the cursor was issued, plus the next
// cursor if more candidates remain.
type ExpandResult struct {
	NewNodes   []models.GraphNode
	NewEdges   []models.GraphEdge
	NextCursor string
	HasMore    bool
}

// Expand decodes cursor, validates the center is still resolvable, and
// fetches direct neighbors for up to 5 deduped frontier addresses, up
// to the remaining node budget. This is the engine behind both the
// REST `/expand` endpoint and the streaming channel (spec.md §4.10),
// and charges callerID the same per-page cost Assemble charges for a
// full traversal, so neither path can drive unbounded store/engine
// load free of the cost budget.
func (a *Assembler) Expand(ctx context.Context, callerID, cursorRaw string, limit int, minVolume *big.Int) (ExpandResult, error) {
	if err := a.cost.Admit(callerID, ratelimit.CostGraphQuery); err != nil {
		return ExpandResult{}, err
	}

	cursor, err := DecodeCursor(cursorRaw)
	if err != nil {
		return ExpandResult{}, err
	}

	if _, err := a.store.GetAccount(ctx, cursor.CenterAddress); err != nil {
		if err == store.ErrNotFound {
			return ExpandResult{}, apierr.New(apierr.CodeAddressNotFound, "cursor center address no longer resolvable")
		}
		return ExpandResult{}, err
	}

	excluded := make(map[string]struct{}, len(cursor.ExcludeNodes))
	for _, n := range cursor.ExcludeNodes {
		excluded[n] = struct{}{}
	}

	frontierSeed := cursor.LastNodes
	if len(frontierSeed) == 0 {
		// A bare-address cursor (spec.md §6's shorthand) carries no
		// LastNodes yet — the frontier for its first expansion is the
		// center itself.
		frontierSeed = []string{cursor.CenterAddress}
	}
	// frontierSeed is the set of nodes to expand FROM this batch, not a
	// set of new discoveries — it must not be filtered against excluded,
	// since every address in it was itself added to excluded when it
	// was discovered on the previous batch (see the nextCursor build
	// below). Only dedup/cap it here; membership filtering against
	// excluded applies solely to newly-discovered candidates below.
	frontier := dedupFrontier(frontierSeed, maxFrontierPerBatch)
	if limit <= 0 {
		limit = 50
	}

	var newNodes []models.GraphNode
	var newEdges []models.GraphEdge
	nextFrontier := make([]string, 0, maxFrontierPerBatch)
	hasMore := false

	perNodeBudget := limit / max(1, len(frontier))
	for _, addr := range frontier {
		result, err := a.engine.Direct(ctx, addr, minVolume, perNodeBudget+1)
		if err != nil {
			return ExpandResult{}, err
		}
		if result.HasMore {
			hasMore = true
		}
		for _, n := range result.Nodes {
			if n.Address == addr || isExcluded(excluded, n.Address) {
				continue
			}
			excluded[n.Address] = struct{}{}
			// cursor.CurrentDepth is the absolute hop this batch is
			// expanding into (DecodeCursor seeds a bare-address cursor
			// at 1, i.e. direct neighbors of the center) — not one
			// past it.
			newNodes = append(newNodes, models.GraphNode{Address: n.Address, HopLevel: cursor.CurrentDepth, NodeType: "neighbor"})
			nextFrontier = append(nextFrontier, n.Address)
		}
		for _, e := range result.Edges {
			newEdges = append(newEdges, models.GraphEdge{
				ID: edgeID(e.From, e.To), Source: e.From, Target: e.To,
				Count: e.Count, Volume: e.Volume.String(), EdgeType: models.EdgeTypeTransfer,
				Bidirectional: e.Bidirectional,
			})
		}
	}

	var nextCursor string
	if hasMore || len(nextFrontier) > 0 {
		allExcluded := make([]string, 0, len(excluded))
		for addr := range excluded {
			allExcluded = append(allExcluded, addr)
		}
		nextCursor = EncodeCursor(Cursor{
			CenterAddress: cursor.CenterAddress,
			CurrentDepth:  cursor.CurrentDepth + 1,
			LastNodes:     nextFrontier,
			ExcludeNodes:  allExcluded,
		})
	}

	return ExpandResult{NewNodes: newNodes, NewEdges: newEdges, NextCursor: nextCursor, HasMore: nextCursor != ""}, nil
}

func dedupFrontier(nodes []string, max int) []string {
	seen := make(map[string]struct{}, len(nodes))
	out := make([]string, 0, max)
	for _, n := range nodes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
		if len(out) >= max {
			break
		}
	}
	return out
}

func isExcluded(excluded map[string]struct{}, addr string) bool {
	_, ok := excluded[addr]
	return ok
}
