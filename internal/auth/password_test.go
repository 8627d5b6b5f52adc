package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("meubles-admin")

	require.NoError(t, err)
	assert.NotEqual(t, "meubles-admin", hash)
	assert.NoError(t, ValidateHash(hash))
	assert.True(t, CheckPassword("meubles-admin", hash))
	assert.False(t, CheckPassword("Meubles-admin", hash))
	assert.False(t, CheckPassword("", hash))
}

func TestHashPassword_ShortPassword(t *testing.T) {
	for _, pw := range []string{"", "a", "1234567", "       "} {
		hash, err := HashPassword(pw)
		assert.ErrorIs(t, err, ErrPasswordTooShort, pw)
		assert.Empty(t, hash)
	}
}

func TestHashPassword_Salted(t *testing.T) {
	h1, err := HashPassword("same-password")
	require.NoError(t, err)
	h2, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestCheckPassword_BadHash(t *testing.T) {
	assert.False(t, CheckPassword("password", "invalid-hash"))
	assert.False(t, CheckPassword("password", ""))
}

func TestValidateHash(t *testing.T) {
	assert.ErrorIs(t, ValidateHash("plain-text-password"), ErrInvalidHash)
	assert.ErrorIs(t, ValidateHash(""), ErrInvalidHash)
}
