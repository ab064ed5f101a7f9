package stream_test

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/assembler"
	"github.com/rawblock/substrate-graph-sleuth/internal/guard"
	"github.com/rawblock/substrate-graph-sleuth/internal/ratelimit"
	"github.com/rawblock/substrate-graph-sleuth/internal/store"
	"github.com/rawblock/substrate-graph-sleuth/internal/stream"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// 48-char base58-charset strings so they pass models.IsValidAddress.
const (
	testAddrA = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	testAddrB = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAB"
	testAddrC = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAC"
	testAddrD = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAD"
)

// TestRunGraphStream_StopsAtRequestedDepth seeds a 3-hop chain
// (A -> B -> C -> D) and subscribes with depth=1, asserting that no
// stream:data batch ever carries a node beyond hop 1 and that the
// stream reaches stream:completed on its own rather than running until
// maxPages.
func TestRunGraphStream_StopsAtRequestedDepth(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	transfers := []models.Transfer{
		{BlockNumber: 1, BlockTime: time.Unix(1_700_000_000, 0).UTC(), FromAddress: testAddrA, ToAddress: testAddrB, Amount: "100", TxHash: "0x1"},
		{BlockNumber: 2, BlockTime: time.Unix(1_700_000_100, 0).UTC(), FromAddress: testAddrB, ToAddress: testAddrC, Amount: "100", TxHash: "0x2"},
		{BlockNumber: 3, BlockTime: time.Unix(1_700_000_200, 0).UTC(), FromAddress: testAddrC, ToAddress: testAddrD, Amount: "100", TxHash: "0x3"},
	}
	for _, tr := range transfers {
		_, err := s.IngestTransfer(ctx, tr)
		require.NoError(t, err)
	}

	asm := assembler.New(s, ratelimit.NewCostLimiter(time.Minute, 10_000), guard.New(zerolog.Nop()), nil, 1_000_000, zerolog.Nop())

	mgr := stream.NewManager(zerolog.Nop(), func(_ *http.Request) bool { return true })
	session := mgr.NewSession(ctx)

	go stream.RunGraphStream(ctx, session, asm, "test-caller", stream.GraphSubscription{Address: testAddrA, Depth: 1, MaxPages: 20})

	var sawCompleted bool
	timeout := time.After(5 * time.Second)
drain:
	for {
		select {
		case evt := <-session.Events:
			if evt.Type == stream.EventData {
				payload, ok := evt.Payload.(map[string]interface{})
				require.True(t, ok)
				nodes, _ := payload["nodes"].([]models.GraphNode)
				for _, n := range nodes {
					require.LessOrEqual(t, n.HopLevel, 1, "depth=1 subscription should never emit a node beyond hop 1")
				}
			}
			if evt.Type == stream.EventCompleted {
				sawCompleted = true
				break drain
			}
			if evt.Type == stream.EventError {
				t.Fatalf("unexpected stream error: %+v", evt.Payload)
			}
		case <-timeout:
			t.Fatal("timed out waiting for stream:completed")
		}
	}
	require.True(t, sawCompleted, "expected the stream to reach stream:completed")
}
