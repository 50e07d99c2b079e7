package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("monSuperMotDePasse42")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	ok, err := VerifyPassword("monSuperMotDePasse42", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("mauvaisMotDePasse", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordUsesUniqueSalt(t *testing.T) {
	first, err := HashPassword("pareil")
	require.NoError(t, err)
	second, err := HashPassword("pareil")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("peu importe", "$bcrypt$nimporte$quoi")
	assert.Error(t, err)

	_, err = VerifyPassword("peu importe", "pas un hash")
	assert.Error(t, err)
}
