package validate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/validate"
)

const sampleAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

func TestAddress_Valid(t *testing.T) {
	addr, err := validate.Address(sampleAddress)
	require.NoError(t, err)
	require.Equal(t, sampleAddress, addr)
}

func TestAddress_TooShort(t *testing.T) {
	_, err := validate.Address("5Grwva")
	require.Error(t, err)
}

func TestAddress_HomographRejected(t *testing.T) {
	// Cyrillic lookalike characters substituted into an otherwise
	// valid-length string must never pass.
	homograph := "5Grwvа" + sampleAddress[6:] // а is Cyrillic U+0430
	_, err := validate.Address(homograph)
	require.Error(t, err)
}
