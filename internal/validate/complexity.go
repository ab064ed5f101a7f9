package validate

import (
	"math"

	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
)

// DefaultComplexityCap is the ceiling a request's complexity score must
// not exceed (spec.md §4.5).
const DefaultComplexityCap = 10.0

// ComplexityScore computes depth·log10(maxNodes+1) + 0.5·|filters| +
// log10(days+1).
func ComplexityScore(depth, maxNodes, filterCount int, days int) float64 {
	return float64(depth)*math.Log10(float64(maxNodes+1)) +
		0.5*float64(filterCount) +
		math.Log10(float64(days+1))
}

// CheckComplexity rejects the request before any DB work if its score
// exceeds cap. A cap ≤ 0 falls back to DefaultComplexityCap.
func CheckComplexity(depth, maxNodes, filterCount, days int, cap float64) (float64, error) {
	if cap <= 0 {
		cap = DefaultComplexityCap
	}
	score := ComplexityScore(depth, maxNodes, filterCount, days)
	if score > cap {
		return score, apierr.New(apierr.CodeQueryTooComplex, "query exceeds complexity cap").
			WithDetails(map[string]interface{}{"score": score, "cap": cap})
	}
	return score, nil
}
