package analysis

import (
	"github.com/rawblock/substrate-graph-sleuth/internal/graphquery"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// patternWeight maps a pattern type to its risk-scoring weight
// (spec.md §4.11: circular=30, rapid=20, round=10).
var patternWeight = map[string]float64{
	models.PatternCircularFlow:    30,
	models.PatternRapidSequential: 20,
	models.PatternRoundNumber:     10,
}

// CirclesToPatterns converts detected cycles into the tagged-sum
// Pattern shape, with confidence derived from how tight the path is
// relative to maxDepth (shorter cycles score higher; volume does not
// affect it).
func CirclesToPatterns(cycles []graphquery.Cycle, maxDepth int) []models.Pattern {
	out := make([]models.Pattern, 0, len(cycles))
	for _, c := range cycles {
		hops := len(c.Path) - 1
		confidence := 1.0 - float64(hops-2)/float64(maxDepth*2)
		if confidence < 0.5 {
			confidence = 0.5
		}
		if confidence > 0.99 {
			confidence = 0.99
		}
		out = append(out, models.Pattern{
			Type:        models.PatternCircularFlow,
			Confidence:  confidence,
			Severity:    severityFor(maxDepth-hops, 0, maxDepth),
			Description: "funds returned to their originating address via a closed loop",
			Evidence: map[string]interface{}{
				"path":      c.Path,
				"minVolume": c.MinVolume.String(),
			},
		})
	}
	return out
}

// AssessRisk combines pattern-type weights × confidence (capped at
// 100) into a single risk score, with a recommendation at thresholds
// 30/70 (spec.md §4.11).
func AssessRisk(patterns []models.Pattern) models.RiskAssessment {
	score := 0.0
	for _, p := range patterns {
		w, ok := patternWeight[p.Type]
		if !ok {
			w = 5
		}
		score += w * p.Confidence
	}
	if score > 100 {
		score = 100
	}

	recommendation := "monitor"
	switch {
	case score >= 70:
		recommendation = "flag_for_review"
	case score >= 30:
		recommendation = "investigate"
	}

	return models.RiskAssessment{
		RiskScore:      int(score),
		Recommendation: recommendation,
		Patterns:       patterns,
	}
}
