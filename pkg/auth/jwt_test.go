package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateAndParse(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)

	token, err := svc.GenerateToken(42, "alice@example.com", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	// Срок жизни — 24 часа с момента выпуска
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestJWTService_ParseInvalidToken(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)

	_, err = svc.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ParseWrongSecret(t *testing.T) {
	issuer, err := NewJWTService("secret-a", 24)
	require.NoError(t, err)
	verifier, err := NewJWTService("secret-b", 24)
	require.NoError(t, err)

	token, err := issuer.GenerateToken(1, "bob@example.com", "admin")
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService("", 24)
	assert.Error(t, err)
}
