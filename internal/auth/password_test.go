package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, h.Compare(hash, "correct horse"))
	assert.False(t, h.Compare(hash, "wrong horse"))
	assert.False(t, h.Compare(hash, ""))
}

func TestBcryptHasherMalformedHash(t *testing.T) {
	h := NewBcryptHasher()

	assert.False(t, h.Compare("", "anything"))
	assert.False(t, h.Compare("not-a-bcrypt-digest", "anything"))
	// A stored plaintext value must never compare equal to itself.
	assert.False(t, h.Compare("plaintext", "plaintext"))
}

func TestBcryptHasherUniqueSalts(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	a, err := h.Hash("same password")
	require.NoError(t, err)
	b, err := h.Hash("same password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
