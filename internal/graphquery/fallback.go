package graphquery

import (
	"context"
)

// Fallback builds a well-formed, possibly-empty graph from
// AccountStats alone, used when neither Direct nor MultiHop produces
// any nodes (e.g. center has account_stats rows but no transfer_stats
// rows yet — a sync-lag window).
func (e *Engine) Fallback(ctx context.Context, center string) (Result, error) {
	stats, err := e.store.GetAccountStats(ctx, center)
	if err != nil {
		return Result{}, err
	}

	nodes := []Node{{Address: center, HopLevel: 0}}
	if stats.UniqueSenders == 0 && stats.UniqueReceivers == 0 {
		return Result{Nodes: nodes}, nil
	}

	// No identified counterparties are available from account_stats
	// alone (it holds only aggregate counts); the graph consists of the
	// center node with no edges, but the assembler can still surface
	// activity counts from stats in the node's riskFactors/metadata.
	return Result{Nodes: nodes}, nil
}
