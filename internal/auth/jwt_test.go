package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(Claims{UserID: "uid-1", Name: "Ada", Email: "ada@example.com"}, secret, time.Hour)
	require.NoError(t, err)

	c, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", c.UserID)
	assert.Equal(t, "Ada", c.Name)
	assert.Equal(t, "uid-1", c.Subject)
}

func TestParseTokenRejects(t *testing.T) {
	good, err := GenerateToken(Claims{UserID: "uid-1"}, secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(good, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateToken(Claims{UserID: "uid-1"}, secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "uid-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(unsigned, secret)
	assert.Error(t, err)

	_, err = GenerateToken(Claims{}, secret, time.Hour)
	assert.Error(t, err)
}
