package analysis_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/analysis"
	"github.com/rawblock/substrate-graph-sleuth/internal/graphquery"
	"github.com/rawblock/substrate-graph-sleuth/internal/store"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
	"github.com/rs/zerolog"
)

func seedAccount(t *testing.T, s *store.Store, address string) {
	t.Helper()
	require.NoError(t, s.UpsertAccount(context.Background(), models.Account{Address: address, Balance: "0"}))
}

func TestAnalyzer_Metrics_ReturnsBundleForCenter(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	for _, addr := range []string{"center", "a", "b"} {
		seedAccount(t, s, addr)
	}

	transfers := []models.Transfer{
		{BlockNumber: 1, BlockTime: time.Unix(1_700_000_000, 0).UTC(), FromAddress: "center", ToAddress: "a", Amount: "100", TxHash: "0x1"},
		{BlockNumber: 2, BlockTime: time.Unix(1_700_000_100, 0).UTC(), FromAddress: "center", ToAddress: "b", Amount: "200", TxHash: "0x2"},
		{BlockNumber: 3, BlockTime: time.Unix(1_700_000_200, 0).UTC(), FromAddress: "b", ToAddress: "a", Amount: "50", TxHash: "0x3"},
	}
	for _, tr := range transfers {
		_, err := s.IngestTransfer(ctx, tr)
		require.NoError(t, err)
	}

	analyzer := analysis.NewAnalyzer(s, graphquery.New(s))
	report, err := analyzer.Metrics(ctx, "center", 100)
	require.NoError(t, err)

	require.NotNil(t, report.Bundle.Degree)
	require.Equal(t, analysis.ApproximationBound, report.Bundle.Scope)
	require.True(t, report.Bundle.Approximate)
	require.NotEmpty(t, report.Ranking)

	var centerRanked bool
	for _, r := range report.Ranking {
		if r.Address == "center" {
			centerRanked = true
		}
	}
	require.True(t, centerRanked, "expected center address to appear in the ranking")
}
