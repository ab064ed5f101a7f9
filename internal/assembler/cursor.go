package assembler

import (
	"encoding/base64"
	"encoding/json"

	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// Cursor is the opaque pagination token for progressive graph
// expansion (spec.md §6 Cursor format).
type Cursor struct {
	CenterAddress string   `json:"centerAddress"`
	CurrentDepth  int      `json:"currentDepth"`
	LastNodes     []string `json:"lastNodes"`
	ExcludeNodes  []string `json:"excludeNodes"`
}

// EncodeCursor serializes c as opaque base64 JSON.
func EncodeCursor(c Cursor) string {
	b, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(b)
}

// DecodeCursor accepts either a base64-encoded Cursor or a bare address
// string, which the spec requires be treated as a fresh expansion at
// depth 1.
func DecodeCursor(raw string) (Cursor, error) {
	if raw == "" {
		return Cursor{}, apierr.New(apierr.CodeInvalidCursor, "empty cursor")
	}

	if models.IsValidAddress(raw) {
		return Cursor{CenterAddress: raw, CurrentDepth: 1}, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return Cursor{}, apierr.New(apierr.CodeInvalidCursor, "cursor is not valid base64 or an address")
	}

	var c Cursor
	if err := json.Unmarshal(decoded, &c); err != nil {
		return Cursor{}, apierr.New(apierr.CodeInvalidCursorData, "cursor payload is malformed")
	}
	if c.CenterAddress == "" || !models.IsValidAddress(c.CenterAddress) {
		return Cursor{}, apierr.New(apierr.CodeInvalidCursorData, "cursor center address is invalid")
	}
	return c, nil
}
