package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

func newManager() *JWTManager {
	return NewJWTManager("test-secret-key-for-testing", 30*time.Minute, 14*24*time.Hour)
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	m := newManager()

	token, err := m.GenerateAccessToken("user-1", "+79990000001", "CLIENT")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "+79990000001", claims.Subject)
	assert.Equal(t, "CLIENT", claims.Role)
}

func TestGenerateAndValidateRefreshToken(t *testing.T) {
	m := newManager()

	token, err := m.GenerateRefreshToken("user-1", "+79990000001")
	require.NoError(t, err)

	claims, err := m.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "+79990000001", claims.Subject)
	assert.Equal(t, "refresh", claims.TokenType)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	m := newManager()
	other := NewJWTManager("a-completely-different-secret", 30*time.Minute, 14*24*time.Hour)

	token, err := m.GenerateAccessToken("user-1", "+79990000001", "CLIENT")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
}

func TestValidateAccessToken_Expired(t *testing.T) {
	m := NewJWTManager("test-secret-key-for-testing", -time.Minute, 14*24*time.Hour)

	token, err := m.GenerateAccessToken("user-1", "+79990000001", "CLIENT")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrExpiredToken))
}

func TestValidateRefreshToken_RejectsAccessToken(t *testing.T) {
	m := newManager()

	access, err := m.GenerateAccessToken("user-1", "+79990000001", "CLIENT")
	require.NoError(t, err)

	// An access token has no token_type claim, so it must not pass as refresh.
	_, err = m.ValidateRefreshToken(access)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
}

func TestValidateAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	m := newManager()

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: "user-1",
		Role:   "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "+79990000001",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	m := newManager()
	_, err := m.ValidateAccessToken("not.a.jwt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
}

func TestExpiryAccessors(t *testing.T) {
	m := newManager()
	assert.Equal(t, 30*time.Minute, m.AccessExpiry())
	assert.Equal(t, 14*24*time.Hour, m.RefreshExpiry())
}
