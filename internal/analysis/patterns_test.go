package analysis_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/analysis"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

func TestDetectRapidSequential_FlagsThreeWithinWindow(t *testing.T) {
	transfers := []analysis.TransferEvent{
		{BlockTime: 100, FromAddress: "center", ToAddress: "a", Amount: big.NewInt(1)},
		{BlockTime: 110, FromAddress: "center", ToAddress: "b", Amount: big.NewInt(1)},
		{BlockTime: 120, FromAddress: "center", ToAddress: "c", Amount: big.NewInt(1)},
	}
	p := analysis.DetectRapidSequential("center", transfers, 300)
	require.NotNil(t, p)
	require.Equal(t, models.PatternRapidSequential, p.Type)
}

func TestDetectRapidSequential_IgnoresBelowThreshold(t *testing.T) {
	transfers := []analysis.TransferEvent{
		{BlockTime: 100, FromAddress: "center", ToAddress: "a", Amount: big.NewInt(1)},
		{BlockTime: 110, FromAddress: "center", ToAddress: "b", Amount: big.NewInt(1)},
	}
	require.Nil(t, analysis.DetectRapidSequential("center", transfers, 300))
}

func TestDetectRapidSequential_IgnoresIncoming(t *testing.T) {
	transfers := []analysis.TransferEvent{
		{BlockTime: 100, FromAddress: "other", ToAddress: "center", Amount: big.NewInt(1)},
		{BlockTime: 110, FromAddress: "other", ToAddress: "center", Amount: big.NewInt(1)},
		{BlockTime: 120, FromAddress: "other", ToAddress: "center", Amount: big.NewInt(1)},
	}
	require.Nil(t, analysis.DetectRapidSequential("center", transfers, 300))
}

func TestDetectRoundNumber_FlagsMajorityRoundAmounts(t *testing.T) {
	round := big.NewInt(1_000_000_000_000)
	transfers := []analysis.TransferEvent{
		{FromAddress: "center", Amount: new(big.Int).Mul(round, big.NewInt(5))},
		{FromAddress: "center", Amount: new(big.Int).Mul(round, big.NewInt(3))},
		{FromAddress: "center", Amount: big.NewInt(1234567)},
	}
	p := analysis.DetectRoundNumber("center", transfers, 0.3)
	require.NotNil(t, p)
	require.Equal(t, models.PatternRoundNumber, p.Type)
}

func TestDetectRoundNumber_IgnoresBelowSampleFloor(t *testing.T) {
	transfers := []analysis.TransferEvent{
		{FromAddress: "center", Amount: big.NewInt(1_000_000_000_000)},
	}
	require.Nil(t, analysis.DetectRoundNumber("center", transfers, 0.3))
}
