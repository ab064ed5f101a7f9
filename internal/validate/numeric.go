package validate

// Depth clamps a requested traversal depth to [1, 4] (spec.md §4.5).
func Depth(v int) int {
	return clampInt(v, 1, 4)
}

// MaxNodes clamps a requested node budget to [10, 500] (spec.md §4.5).
func MaxNodes(v int) int {
	return clampInt(v, 10, 500)
}

// Limit clamps a requested page size to [1, 200], so a negative or
// absurdly large caller-supplied limit can't turn into an unbounded
// SQL LIMIT (SQLite treats a negative LIMIT as "no limit").
func Limit(v int) int {
	return clampInt(v, 1, 200)
}

// Offset clamps a requested page offset to a non-negative value.
func Offset(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IntOrDefault parses s as an integer, returning def on any parse
// failure rather than an error — the generic numeric coercion spec.md
// §4.5 calls for on non-critical query parameters.
func IntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n := 0
	neg := false
	i := 0
	if s[0] == '-' {
		neg = true
		i = 1
	}
	if i == len(s) {
		return def
	}
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}
