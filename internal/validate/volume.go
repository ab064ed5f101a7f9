package validate

import (
	"math/big"
	"strings"

	"github.com/rs/zerolog"
)

// Volume is a decimal-string amount truncated to its integer part for
// arbitrary-precision comparison. Truncated reports whether a
// fractional part was discarded, per the Open Question decision in
// DESIGN.md: truncation is preserved for compatibility with upstream
// payloads that have historically shipped decimals here, but it is
// never silent.
type Volume struct {
	Int        *big.Int
	Truncated  bool
	raw        string
}

// ParseVolume strips any trailing fractional part from a decimal-string
// volume filter before constructing a big.Int for exact comparison.
// If log is non-nil and truncation occurred, it is logged at warn
// level with the original and truncated values.
func ParseVolume(s string, log *zerolog.Logger) Volume {
	intPart := s
	truncated := false
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart = s[:idx]
		truncated = len(strings.Trim(s[idx+1:], "0")) > 0
	}
	if intPart == "" || intPart == "-" {
		intPart = "0"
	}

	n, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		n = big.NewInt(0)
	}

	if truncated && log != nil {
		log.Warn().
			Str("raw", s).
			Str("truncated_to", intPart).
			Msg("volume filter truncated fractional part for integer comparison")
	}

	return Volume{Int: n, Truncated: truncated, raw: s}
}

// Compare reports -1/0/1 comparing v against other, matching the
// integer-truncated semantics spec.md §8 requires (e.g.
// "1000000000000.5" >= "1000000000000" is true).
func (v Volume) Compare(other Volume) int {
	return v.Int.Cmp(other.Int)
}

// String returns the original, untruncated representation.
func (v Volume) String() string { return v.raw }
