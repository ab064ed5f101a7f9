// Package models holds the wire/domain types shared across the graph
// engine: addresses, accounts, transfers, and the transient graph view
// assembled for API responses.
package models

import (
	"regexp"
)

// addressPattern matches the base58-like identifier used by Substrate
// chains. Length 47-50 covers SS58-encoded addresses across the common
// network prefixes.
var addressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{47,50}$`)

// homographRanges lists Unicode blocks that must never appear in an
// address. Base58 addresses are ASCII-only; admitting look-alike
// characters from these blocks would let an attacker craft addresses
// that render identically to a legitimate one.
var homographRanges = []struct {
	lo, hi rune
}{
	{0x0400, 0x04FF}, // Cyrillic
	{0x0370, 0x03FF}, // Greek and Coptic
	{0x1E00, 0x1EFF}, // Latin Extended Additional
	{0x0100, 0x017F}, // Latin Extended-A
	{0x0180, 0x024F}, // Latin Extended-B
}

// Address is an opaque chain account identifier. It is always validated
// through IsValidAddress before being trusted as a primary key.
type Address string

// IsValidAddress reports whether s matches the address shape and
// contains no homograph code points.
func IsValidAddress(s string) bool {
	if !addressPattern.MatchString(s) {
		return false
	}
	for _, r := range s {
		for _, rng := range homographRanges {
			if r >= rng.lo && r <= rng.hi {
				return false
			}
		}
	}
	return true
}
