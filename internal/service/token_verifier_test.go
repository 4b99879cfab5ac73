package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/config"
	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
)

func signToken(t *testing.T, secret, issuer string, role models.UserRole, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := &models.JWTClaims{
		UserID: "tutor-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "tutor-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestTokenVerifierAcceptsValidToken(t *testing.T) {
	v := NewTokenVerifier(config.JWTConfig{Secret: "s3cret", Issuer: "tutor-pro-auth"})
	claims, err := v.ValidateToken(signToken(t, "s3cret", "tutor-pro-auth", models.RoleTutor, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "tutor-1", claims.UserID)
	assert.Equal(t, models.RoleTutor, claims.Role)
}

func TestTokenVerifierRejects(t *testing.T) {
	v := NewTokenVerifier(config.JWTConfig{Secret: "s3cret", Issuer: "tutor-pro-auth"})
	cases := map[string]string{
		"wrong secret": signToken(t, "other", "tutor-pro-auth", models.RoleTutor, time.Hour),
		"wrong issuer": signToken(t, "s3cret", "someone-else", models.RoleTutor, time.Hour),
		"expired":      signToken(t, "s3cret", "tutor-pro-auth", models.RoleTutor, -time.Minute),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
		})
	}
}

func TestTokenVerifierRejectsUnknownRole(t *testing.T) {
	v := NewTokenVerifier(config.JWTConfig{Secret: "s3cret"})
	_, err := v.ValidateToken(signToken(t, "s3cret", "", models.UserRole("STUDENT"), time.Hour))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
