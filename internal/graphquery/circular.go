package graphquery

import (
	"context"
	"math/big"
	"sort"
	"strings"
)

// Cycle is one detected circular-flow path, center-to-center, with the
// minimum edge volume observed along it.
type Cycle struct {
	Path      []string
	MinVolume *big.Int
}

// CircularFlows finds directed paths center→…→center of length ≤
// maxDepth where every edge's total_amount ≥ minVolume, returning each
// distinct cycle once in canonical (lexicographically smallest
// rotation) form.
func (e *Engine) CircularFlows(ctx context.Context, center string, minVolume *big.Int, maxDepth int) ([]Cycle, error) {
	var found []Cycle
	seen := make(map[string]struct{})

	var dfs func(path []string, pathMin *big.Int) error
	dfs = func(path []string, pathMin *big.Int) error {
		if len(path) > maxDepth {
			return nil
		}
		current := path[len(path)-1]
		outgoing, err := e.store.OutgoingStats(ctx, current, minVolume)
		if err != nil {
			return err
		}
		for _, ts := range outgoing {
			edgeVolume, ok := new(big.Int).SetString(ts.TotalAmount, 10)
			if !ok {
				continue
			}
			next := ts.ToAddress
			newMin := pathMin
			if edgeVolume.Cmp(pathMin) < 0 {
				newMin = edgeVolume
			}

			if next == center && len(path) >= 2 {
				canon := canonicalRotation(path)
				key := strings.Join(canon, ">")
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					found = append(found, Cycle{Path: append(append([]string{}, canon...), canon[0]), MinVolume: newMin})
				}
				continue
			}
			if contains(path, next) {
				continue // only simple cycles back to center
			}
			if err := dfs(append(path, next), newMin); err != nil {
				return err
			}
		}
		return nil
	}

	if err := dfs([]string{center}, hugeVolume()); err != nil {
		return nil, err
	}
	sort.Slice(found, func(i, j int) bool { return len(found[i].Path) < len(found[j].Path) })
	return found, nil
}

func hugeVolume() *big.Int {
	v := big.NewInt(1)
	return v.Lsh(v, 256)
}

func contains(path []string, addr string) bool {
	for _, p := range path {
		if p == addr {
			return true
		}
	}
	return false
}

// canonicalRotation returns the lexicographically smallest rotation of
// path, so A→B→C→A and B→C→A→B dedup to the same cycle.
func canonicalRotation(path []string) []string {
	best := path
	for i := 1; i < len(path); i++ {
		candidate := append(append([]string{}, path[i:]...), path[:i]...)
		if less(candidate, best) {
			best = candidate
		}
	}
	return best
}

func less(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
