package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/analysis"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

func TestAssessRisk_NoPatternsIsLowestRecommendation(t *testing.T) {
	r := analysis.AssessRisk(nil)
	require.Equal(t, 0, r.RiskScore)
	require.Equal(t, "monitor", r.Recommendation)
}

func TestAssessRisk_HighConfidenceCircularFlowFlagsForReview(t *testing.T) {
	// A single high-confidence pattern of each type caps out around 56
	// (30*.99 + 20*.9 + 10*.9), below the 70 flag_for_review floor — a
	// center with two distinct high-confidence circular-flow cycles
	// plus rapid/round activity is what actually crosses it.
	patterns := []models.Pattern{
		{Type: models.PatternCircularFlow, Confidence: 0.99},
		{Type: models.PatternCircularFlow, Confidence: 0.99},
		{Type: models.PatternRapidSequential, Confidence: 0.9},
		{Type: models.PatternRoundNumber, Confidence: 0.9},
	}
	r := analysis.AssessRisk(patterns)
	require.GreaterOrEqual(t, r.RiskScore, 70)
	require.Equal(t, "flag_for_review", r.Recommendation)
}

func TestAssessRisk_ScoreCapsAt100(t *testing.T) {
	patterns := make([]models.Pattern, 0, 10)
	for i := 0; i < 10; i++ {
		patterns = append(patterns, models.Pattern{Type: models.PatternCircularFlow, Confidence: 0.99})
	}
	r := analysis.AssessRisk(patterns)
	require.Equal(t, 100, r.RiskScore)
}

func TestAssessRisk_ModerateScoreRecommendsInvestigate(t *testing.T) {
	// round(10) + rapid(20) alone cap out under 30 even at confidence
	// 0.99, so this mixes in a low-confidence circular-flow pattern to
	// land the combined score in the moderate band.
	patterns := []models.Pattern{
		{Type: models.PatternRoundNumber, Confidence: 0.9},
		{Type: models.PatternRapidSequential, Confidence: 0.9},
		{Type: models.PatternCircularFlow, Confidence: 0.3},
	}
	r := analysis.AssessRisk(patterns)
	require.GreaterOrEqual(t, r.RiskScore, 30)
	require.Less(t, r.RiskScore, 70)
	require.Equal(t, "investigate", r.Recommendation)
}
