package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "getmentor-sessions", 1)

	token, err := tm.GenerateToken("mentee-1", "mentee")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "mentee-1", claims.Subject)
	assert.Equal(t, "mentee", claims.Role)
	assert.Equal(t, time.Hour, tm.GetExpirationTime())
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	token, err := NewTokenManager("other", "getmentor-sessions", 1).GenerateToken("mentor-1", "mentor")
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "getmentor-sessions", 1).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsWrongIssuer(t *testing.T) {
	token, err := NewTokenManager("secret", "someone-else", 1).GenerateToken("mentor-1", "mentor")
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "getmentor-sessions", 1).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Expired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	claims := ParticipantClaims{
		Role: "mentor",
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "mentor-1",
			Issuer:    "getmentor-sessions",
			IssuedAt:  gojwt.NewNumericDate(past),
			ExpiresAt: gojwt.NewNumericDate(past.Add(time.Hour)),
		},
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "getmentor-sessions", 1).ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_RequiresSubject(t *testing.T) {
	tm := NewTokenManager("secret", "", 1)
	token, err := tm.GenerateToken("", "mentor")
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaim)
}

func TestTimingSafeCompare(t *testing.T) {
	assert.True(t, TimingSafeCompare("abc", "abc"))
	assert.False(t, TimingSafeCompare("abc", "abd"))
	assert.False(t, TimingSafeCompare("abc", ""))
}
