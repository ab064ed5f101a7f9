package graphquery_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/graphquery"
	"github.com/rawblock/substrate-graph-sleuth/internal/store"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
	"github.com/rs/zerolog"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMultiHop_DoesNotDoubleCountSharedCounterpartyEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	transfers := []models.Transfer{
		{BlockNumber: 1, BlockTime: time.Unix(1_700_000_000, 0).UTC(), FromAddress: "c", ToAddress: "a", Amount: "100", TxHash: "0x1"},
		{BlockNumber: 2, BlockTime: time.Unix(1_700_000_100, 0).UTC(), FromAddress: "c", ToAddress: "b", Amount: "100", TxHash: "0x2"},
		{BlockNumber: 3, BlockTime: time.Unix(1_700_000_200, 0).UTC(), FromAddress: "a", ToAddress: "b", Amount: "100", TxHash: "0x3"},
	}
	for _, tr := range transfers {
		_, err := s.IngestTransfer(ctx, tr)
		require.NoError(t, err)
	}

	engine := graphquery.New(s)
	result, err := engine.MultiHop(ctx, "c", nil, 2, 10)
	require.NoError(t, err)
	require.Len(t, result.Edges, 3)

	for _, e := range result.Edges {
		require.Equal(t, "100", e.Volume.String(), "edge %s->%s should reflect the single underlying transfer, not a doubled count", e.From, e.To)
		require.EqualValues(t, 1, e.Count, "edge %s->%s should have transfer_count=1", e.From, e.To)
	}
}

// TestMultiHop_KeepsLowVolumeInSetEdgeAmongHighVolumeOutsiders exercises
// edgesAmong's per-node TopCounterparties fetch: node "a" has several
// counterparties outside the traversal's discovered node set with far
// higher volume than its one in-set edge to "b". That edge must still
// surface in the result, not be pushed out of a capped top-K fetch by
// the higher-volume out-of-set rows.
func TestMultiHop_KeepsLowVolumeInSetEdgeAmongHighVolumeOutsiders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	transfers := []models.Transfer{
		{BlockNumber: 1, BlockTime: time.Unix(1_700_000_000, 0).UTC(), FromAddress: "c", ToAddress: "a", Amount: "500", TxHash: "0x1"},
		{BlockNumber: 2, BlockTime: time.Unix(1_700_000_100, 0).UTC(), FromAddress: "c", ToAddress: "b", Amount: "500", TxHash: "0x2"},
		{BlockNumber: 3, BlockTime: time.Unix(1_700_000_200, 0).UTC(), FromAddress: "a", ToAddress: "b", Amount: "10", TxHash: "0x3"},
		{BlockNumber: 4, BlockTime: time.Unix(1_700_000_300, 0).UTC(), FromAddress: "a", ToAddress: "z1", Amount: "1000", TxHash: "0x4"},
		{BlockNumber: 5, BlockTime: time.Unix(1_700_000_400, 0).UTC(), FromAddress: "a", ToAddress: "z2", Amount: "900", TxHash: "0x5"},
		{BlockNumber: 6, BlockTime: time.Unix(1_700_000_500, 0).UTC(), FromAddress: "a", ToAddress: "z3", Amount: "800", TxHash: "0x6"},
	}
	for _, tr := range transfers {
		_, err := s.IngestTransfer(ctx, tr)
		require.NoError(t, err)
	}

	engine := graphquery.New(s)
	result, err := engine.MultiHop(ctx, "c", nil, 1, 10)
	require.NoError(t, err)

	var sawAB bool
	for _, e := range result.Edges {
		if (e.From == "a" && e.To == "b") || (e.From == "b" && e.To == "a") {
			sawAB = true
		}
	}
	require.True(t, sawAB, "a-b edge must survive even though a has several higher-volume counterparties outside the discovered node set")
}
