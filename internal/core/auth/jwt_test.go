package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-that-is-at-least-32-chars"

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, "recipe-suggester", time.Hour)

	token, err := m.GenerateAccessToken(42, "chef@example.com")
	require.NoError(t, err)

	userID, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	m := NewJWTManager(testSecret, "recipe-suggester", time.Hour)

	expired := NewJWTManager(testSecret, "recipe-suggester", -time.Minute)
	expiredToken, err := expired.GenerateAccessToken(1, "")
	require.NoError(t, err)

	otherIssuer := NewJWTManager(testSecret, "someone-else", time.Hour)
	otherToken, err := otherIssuer.GenerateAccessToken(1, "")
	require.NoError(t, err)

	otherSecret := NewJWTManager("another-secret-key-that-is-32-chars-long", "recipe-suggester", time.Hour)
	forged, err := otherSecret.GenerateAccessToken(1, "")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1", Issuer: "recipe-suggester"})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"expired":      expiredToken,
		"wrong issuer": otherToken,
		"wrong secret": forged,
		"alg none":     noneToken,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.ValidateAccessToken(token)
			assert.Error(t, err)
		})
	}
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	hash, err := h.Hash("supersecret")
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", hash)
	assert.True(t, h.Verify(hash, "supersecret"))
	assert.False(t, h.Verify(hash, "wrong-password"))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(1).cost)
	assert.Equal(t, bcrypt.MaxCost, NewPasswordHasher(99).cost)
}
