package models

import "time"

// Pattern kinds recognized by the analyzer, a tagged-sum discriminator
// per spec.md §9 ("variant pattern results").
const (
	PatternCircularFlow        = "circular_flow"
	PatternRapidSequential     = "rapid_sequential"
	PatternRoundNumber         = "round_number"
	PatternMixingService       = "mixing_service"
	PatternExchangeConsolidation = "exchange_consolidation"
)

// Pattern is the tagged-sum result type: Type discriminates which of
// the Evidence fields are meaningful, but every pattern shares the
// {confidence, severity, description, evidence, timestamp} shape.
type Pattern struct {
	Type        string                 `json:"type"`
	Confidence  float64                `json:"confidence"`
	Severity    string                 `json:"severity"` // low/medium/high
	Description string                 `json:"description"`
	Evidence    map[string]interface{} `json:"evidence"`
	Timestamp   time.Time              `json:"timestamp"`
}

// RiskAssessment synthesizes a set of patterns into a single score.
type RiskAssessment struct {
	RiskScore      int      `json:"riskScore"` // 0-100
	Recommendation string   `json:"recommendation"` // monitor/investigate/flag_for_review
	Patterns       []Pattern `json:"patterns"`
}
