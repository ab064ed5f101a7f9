package security_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/security"
)

func TestAnonymizer_DeterministicForSameSalt(t *testing.T) {
	a := security.NewAnonymizer("pepper")
	require.Equal(t, a.Pseudonym("addr1"), a.Pseudonym("addr1"))
}

func TestAnonymizer_DiffersAcrossSalts(t *testing.T) {
	a := security.NewAnonymizer("pepper-a")
	b := security.NewAnonymizer("pepper-b")
	require.NotEqual(t, a.Pseudonym("addr1"), b.Pseudonym("addr1"))
}

func TestAnonymizer_DiffersAcrossAddresses(t *testing.T) {
	a := security.NewAnonymizer("pepper")
	require.NotEqual(t, a.Pseudonym("addr1"), a.Pseudonym("addr2"))
}

func TestAnonymizer_HasStablePrefix(t *testing.T) {
	a := security.NewAnonymizer("pepper")
	require.Regexp(t, `^addr_[0-9a-f]{20}$`, a.Pseudonym("addr1"))
}
