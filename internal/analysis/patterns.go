package analysis

import (
	"math/big"
	"sort"

	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// TransferEvent is the minimal shape pattern detection needs from a
// stored transfer.
type TransferEvent struct {
	BlockTime   int64 // unix seconds
	FromAddress string
	ToAddress   string
	Amount      *big.Int
}

// DetectRapidSequential flags center A when ≥3 outgoing transfers
// co-occur within timeWindowSeconds of each other (spec.md §4.11).
func DetectRapidSequential(center string, transfers []TransferEvent, timeWindowSeconds int64) *models.Pattern {
	var outgoing []TransferEvent
	for _, t := range transfers {
		if t.FromAddress == center {
			outgoing = append(outgoing, t)
		}
	}
	sort.Slice(outgoing, func(i, j int) bool { return outgoing[i].BlockTime < outgoing[j].BlockTime })

	maxCoOccurring := 0
	var windowStart, windowEnd int64
	for i := range outgoing {
		count := 1
		for j := i + 1; j < len(outgoing); j++ {
			if outgoing[j].BlockTime-outgoing[i].BlockTime <= timeWindowSeconds {
				count++
			} else {
				break
			}
		}
		if count > maxCoOccurring {
			maxCoOccurring = count
			windowStart = outgoing[i].BlockTime
			if i+count-1 < len(outgoing) {
				windowEnd = outgoing[i+count-1].BlockTime
			}
		}
	}

	if maxCoOccurring < 3 {
		return nil
	}

	confidence := 0.5 + 0.1*float64(maxCoOccurring-3)
	if confidence > 0.99 {
		confidence = 0.99
	}
	return &models.Pattern{
		Type:       models.PatternRapidSequential,
		Confidence: confidence,
		Severity:   severityFor(maxCoOccurring, 3, 10),
		Description: "multiple outgoing transfers occurred in rapid succession",
		Evidence: map[string]interface{}{
			"transferCount": maxCoOccurring,
			"windowStart":   windowStart,
			"windowEnd":     windowEnd,
		},
	}
}

// roundDivisors are the magnitude thresholds a round-number amount is
// checked against (spec.md §4.11: 1e12/1e13/1e14).
var roundDivisors = []*big.Int{
	big.NewInt(1_000_000_000_000),
	new(big.Int).Mul(big.NewInt(1_000_000_000_000), big.NewInt(10)),
	new(big.Int).Mul(big.NewInt(1_000_000_000_000), big.NewInt(100)),
}

// DetectRoundNumber flags center A when more than threshold (fraction,
// e.g. 0.3) of its outgoing transfers are divisible by one of
// roundDivisors.
func DetectRoundNumber(center string, transfers []TransferEvent, threshold float64) *models.Pattern {
	var outgoing []TransferEvent
	for _, t := range transfers {
		if t.FromAddress == center {
			outgoing = append(outgoing, t)
		}
	}
	if len(outgoing) < 3 {
		return nil
	}

	roundCount := 0
	zero := big.NewInt(0)
	for _, t := range outgoing {
		if t.Amount == nil {
			continue
		}
		for _, d := range roundDivisors {
			if new(big.Int).Mod(t.Amount, d).Cmp(zero) == 0 {
				roundCount++
				break
			}
		}
	}

	fraction := float64(roundCount) / float64(len(outgoing))
	if fraction <= threshold {
		return nil
	}

	return &models.Pattern{
		Type:       models.PatternRoundNumber,
		Confidence: fraction,
		Severity:   severityFor(roundCount, 3, len(outgoing)),
		Description: "a large fraction of outgoing transfers use suspiciously round amounts",
		Evidence: map[string]interface{}{
			"roundCount": roundCount,
			"sampleSize": len(outgoing),
			"fraction":   fraction,
		},
	}
}

func severityFor(value, low, high int) string {
	switch {
	case value >= high:
		return "high"
	case value > low:
		return "medium"
	default:
		return "low"
	}
}
