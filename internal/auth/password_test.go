package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher()

	hash, err := hasher.Hash("hunter22")
	require.NoError(t, err)
	require.NotEqual(t, "hunter22", hash)

	require.True(t, hasher.Compare("hunter22", hash))
	require.False(t, hasher.Compare("hunter23", hash))
	require.False(t, hasher.Compare("hunter22", "not-a-bcrypt-hash"))
}

func TestPasswordHasher_DistinctHashes(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher()

	first, err := hasher.Hash("same-password")
	require.NoError(t, err)
	second, err := hasher.Hash("same-password")
	require.NoError(t, err)

	// bcrypt salts per call.
	require.NotEqual(t, first, second)
}
