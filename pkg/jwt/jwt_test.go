package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenerator() *Generator {
	return NewGenerator(TokenConfig{
		Secret:         "test-secret",
		Issuer:         "secboard-test",
		AccessTokenTTL: time.Hour,
	})
}

func TestGenerateAndValidate(t *testing.T) {
	g := testGenerator()

	token, expiresAt, err := g.GenerateAccessToken("alice", RoleUploader)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := g.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, RoleUploader, claims.Role)
	assert.False(t, claims.IsAdmin())
}

func TestAdminRole(t *testing.T) {
	g := testGenerator()

	token, _, err := g.GenerateAccessToken("root", RoleAdmin)
	require.NoError(t, err)

	claims, err := g.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, _, err := testGenerator().GenerateAccessToken("alice", RoleViewer)
	require.NoError(t, err)

	other := NewGenerator(TokenConfig{
		Secret:         "different-secret",
		Issuer:         "secboard-test",
		AccessTokenTTL: time.Hour,
	})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	issued := NewGenerator(TokenConfig{
		Secret:         "test-secret",
		Issuer:         "someone-else",
		AccessTokenTTL: time.Hour,
	})
	token, _, err := issued.GenerateAccessToken("alice", RoleViewer)
	require.NoError(t, err)

	_, err = testGenerator().ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	g := NewGenerator(TokenConfig{
		Secret:         "test-secret",
		Issuer:         "secboard-test",
		AccessTokenTTL: -time.Minute,
	})
	token, _, err := g.GenerateAccessToken("alice", RoleViewer)
	require.NoError(t, err)

	_, err = g.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := testGenerator().ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
