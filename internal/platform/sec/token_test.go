// Copyright (c) 2026 NextDash. All rights reserved.

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdash/nextdash/internal/platform/sec"
)

/*
TestGenerateToken checks length, uniqueness, and the zero-length fallback.
*/
func TestGenerateToken(t *testing.T) {
	// 1. 32 random bytes hex-encode to 64 characters.
	token, err := sec.GenerateToken(32)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	// 2. Two draws never collide.
	other, err := sec.GenerateToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	// 3. Non-positive lengths fall back to the default.
	fallback, err := sec.GenerateToken(0)
	require.NoError(t, err)
	assert.Len(t, fallback, sec.DefaultTokenLength*2)
}

/*
TestDigestToken checks that the digest is deterministic, fixed-width, and
never the identity function.
*/
func TestDigestToken(t *testing.T) {
	digest := sec.DigestToken("raw-opaque-token")

	assert.Len(t, digest, 64)
	assert.NotEqual(t, "raw-opaque-token", digest)
	assert.Equal(t, digest, sec.DigestToken("raw-opaque-token"))
	assert.NotEqual(t, digest, sec.DigestToken("raw-opaque-token2"))
}
