package assembler_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/assembler"
	"github.com/rawblock/substrate-graph-sleuth/internal/guard"
	"github.com/rawblock/substrate-graph-sleuth/internal/ratelimit"
	"github.com/rawblock/substrate-graph-sleuth/internal/store"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// 48-char base58-charset strings so they pass models.IsValidAddress.
const (
	expandAddrCenter = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	expandAddrHop1   = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAB"
	expandAddrHop2   = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAC"
	expandAddrHop3   = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAD"
)

func openExpandStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestExpand_SecondPageIsNotEmptied verifies that calling Expand a
// second time with the NextCursor from the first call still discovers
// further nodes, rather than coming back empty because the first
// cursor's ExcludeNodes already contained its own LastNodes.
func TestExpand_SecondPageIsNotEmptied(t *testing.T) {
	s := openExpandStore(t)
	ctx := context.Background()

	transfers := []models.Transfer{
		{BlockNumber: 1, BlockTime: time.Unix(1_700_000_000, 0).UTC(), FromAddress: expandAddrCenter, ToAddress: expandAddrHop1, Amount: "100", TxHash: "0x1"},
		{BlockNumber: 2, BlockTime: time.Unix(1_700_000_100, 0).UTC(), FromAddress: expandAddrHop1, ToAddress: expandAddrHop2, Amount: "100", TxHash: "0x2"},
		{BlockNumber: 3, BlockTime: time.Unix(1_700_000_200, 0).UTC(), FromAddress: expandAddrHop2, ToAddress: expandAddrHop3, Amount: "100", TxHash: "0x3"},
	}
	for _, tr := range transfers {
		_, err := s.IngestTransfer(ctx, tr)
		require.NoError(t, err)
	}

	asm := assembler.New(s, ratelimit.NewCostLimiter(time.Minute, 10_000), guard.New(zerolog.Nop()), nil, 1_000_000, zerolog.Nop())

	bareCursor := assembler.EncodeCursor(assembler.Cursor{CenterAddress: expandAddrCenter, CurrentDepth: 1})

	page1, err := asm.Expand(ctx, "test-caller", bareCursor, 50, nil)
	require.NoError(t, err)
	require.NotEmpty(t, page1.NewNodes, "first page should discover the direct neighbor")
	require.NotEmpty(t, page1.NextCursor, "first page should offer a next cursor since hop2/hop3 remain unvisited")

	page2, err := asm.Expand(ctx, "test-caller", page1.NextCursor, 50, nil)
	require.NoError(t, err)
	require.NotEmpty(t, page2.NewNodes, "second page must still discover further nodes, not come back empty")

	var sawHop2 bool
	for _, n := range page2.NewNodes {
		if n.Address == expandAddrHop2 {
			sawHop2 = true
		}
	}
	require.True(t, sawHop2, "second page should surface the next hop discovered from the first page's frontier")
}
