package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	branch, team := uint(2), uint(7)
	token, err := GenerateAccessToken(Subject{
		UserID:   42,
		Username: "staff",
		Role:     "staff",
		BranchID: &branch,
		TeamID:   &team,
	}, testSecret, 30)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "staff", claims.Username)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.TeamID)
	assert.Equal(t, team, *claims.TeamID)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, time.Minute)
}

func TestAccessTokenWithoutAffiliation(t *testing.T) {
	token, err := GenerateAccessToken(Subject{UserID: 1, Username: "admin", Role: "admin", IsStaff: true}, testSecret, 5)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, testSecret)
	require.NoError(t, err)
	assert.True(t, claims.IsStaff)
	assert.Nil(t, claims.BranchID)
	assert.Nil(t, claims.TeamID)
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	valid, err := GenerateAccessToken(Subject{UserID: 1}, testSecret, 5)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := ValidateAccessToken(valid, "other-secret")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateAccessToken("not.a.token", testSecret)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := GenerateAccessToken(Subject{UserID: 1}, testSecret, -1)
		require.NoError(t, err)
		_, err = ValidateAccessToken(expired, testSecret)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		claims := Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = ValidateAccessToken(foreign, testSecret)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("unsigned", func(t *testing.T) {
		claims := Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer}}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ValidateAccessToken(unsigned, testSecret)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
