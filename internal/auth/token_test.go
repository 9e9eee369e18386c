package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/mess-be/internal/models"
)

const (
	testSecret = "test-secret-key-at-least-32-chars-long"
	testIssuer = "mess-backend-test"
)

func TestGenerateAndParse(t *testing.T) {
	tokens := NewTokenManager(testSecret, testIssuer, time.Hour)

	token, err := tokens.Generate(models.Account{ID: 7, Role: models.RoleManager})
	require.NoError(t, err)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, claims.Role)
	assert.Equal(t, testIssuer, claims.Issuer)

	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	assert.Equal(t, time.Hour, lifetime)
}

func TestParse_Expired(t *testing.T) {
	tokens := NewTokenManager(testSecret, testIssuer, time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	tokens.now = func() time.Time { return issued }

	token, err := tokens.Generate(models.Account{ID: 1, Role: models.RoleStudent})
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestParse_WrongSecret(t *testing.T) {
	issuer := NewTokenManager(testSecret, testIssuer, time.Hour)
	other := NewTokenManager("another-secret-key-also-32-chars-long!", testIssuer, time.Hour)

	token, err := issuer.Generate(models.Account{ID: 1, Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_WrongIssuer(t *testing.T) {
	issuer := NewTokenManager(testSecret, "someone-else", time.Hour)
	verifier := NewTokenManager(testSecret, testIssuer, time.Hour)

	token, err := issuer.Generate(models.Account{ID: 1, Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_RejectsUnsignedToken(t *testing.T) {
	tokens := NewTokenManager(testSecret, testIssuer, time.Hour)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role: models.RoleManager,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tokens.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaimsAccountID_BadSubject(t *testing.T) {
	_, err := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"}}.AccountID()
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc.def":   "abc.def",
		"bearer abc.def":   "abc.def",
		"abc.def":          "abc.def",
		"  Bearer  x.y.z ": "x.y.z",
		"":                 "",
		"Bearer ":          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, BearerToken(in), in)
	}
}
