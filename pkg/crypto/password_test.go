package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestNewHasherDefaultsCost(t *testing.T) {
	h, err := NewHasher(0)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.Cost())
}

func TestNewHasherRejectsOutOfRangeCost(t *testing.T) {
	for _, cost := range []int{-1, bcrypt.MinCost - 1, bcrypt.MaxCost + 1} {
		_, err := NewHasher(cost)
		assert.Error(t, err, "cost %d", cost)
	}
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", hash)

	ok, err := h.Verify("pw1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("pw2", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("same-secret")
	require.NoError(t, err)
	b, err := h.Hash("same-secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashRejectsLongPassword(t *testing.T) {
	h := newTestHasher(t)

	_, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestVerifyCorruptHash(t *testing.T) {
	h := newTestHasher(t)

	for _, hash := range []string{"", "not-a-hash", "$2a$04$short"} {
		ok, err := h.Verify("pw", hash)
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrCorruptHash, "hash %q", hash)
	}
}

func TestVerifyLongCandidateIsMismatch(t *testing.T) {
	h := newTestHasher(t)
	hash, err := h.Hash("short")
	require.NoError(t, err)

	ok, err := h.Verify(strings.Repeat("b", 100), hash)
	assert.NoError(t, err)
	assert.False(t, ok)
}
