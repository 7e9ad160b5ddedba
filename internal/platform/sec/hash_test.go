// Copyright (c) 2026 NextDash. All rights reserved.

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdash/nextdash/internal/platform/sec"
)

/*
TestPasswordHasher_RoundTrip checks hashing and verification with the
minimum cost to keep the test fast.
*/
func TestPasswordHasher_RoundTrip(t *testing.T) {
	hasher := sec.NewPasswordHasher(4)

	digest, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", digest)

	assert.True(t, hasher.Verify("correct horse battery staple", digest))
	assert.False(t, hasher.Verify("wrong password", digest))
	assert.False(t, hasher.Verify("correct horse battery staple", "not-a-bcrypt-digest"))
}

/*
TestPasswordHasher_CostClamp checks that out-of-range work factors fall
back to the default instead of failing.
*/
func TestPasswordHasher_CostClamp(t *testing.T) {
	// Out-of-range costs must still produce a usable hasher.
	for _, cost := range []int{-1, 0, 99} {
		hasher := sec.NewPasswordHasher(cost)
		digest, err := hasher.Hash("pw")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("pw", digest))
	}
}

/*
TestPasswordHasher_SaltedDigests checks that hashing the same input twice
yields distinct digests.
*/
func TestPasswordHasher_SaltedDigests(t *testing.T) {
	hasher := sec.NewPasswordHasher(4)

	first, err := hasher.Hash("same input")
	require.NoError(t, err)
	second, err := hasher.Hash("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("same input", first))
	assert.True(t, hasher.Verify("same input", second))
}
