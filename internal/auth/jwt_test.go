package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	jm, err := NewJWTManager("test-secret")
	require.NoError(t, err)

	token, err := jm.GenerateToken("user-1", "user@example.com", "member", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := jm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "member", claims.Role)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	jm, err := NewJWTManager("test-secret")
	require.NoError(t, err)
	other, err := NewJWTManager("different-secret")
	require.NoError(t, err)

	token, err := jm.GenerateToken("user-1", "user@example.com", "member", time.Hour)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	jm, err := NewJWTManager("test-secret")
	require.NoError(t, err)

	token, err := jm.GenerateToken("user-1", "user@example.com", "member", -time.Minute)
	require.NoError(t, err)

	_, err = jm.ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	tok, err := ExtractTokenFromHeader("Bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)

	_, err = ExtractTokenFromHeader("abc123")
	assert.Error(t, err)
}

func TestNewJWTManagerRejectsEmptySecret(t *testing.T) {
	_, err := NewJWTManager("")
	assert.Error(t, err)
}
