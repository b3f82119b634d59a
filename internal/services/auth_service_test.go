package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echolink_errors "echolink/pkg/errors"
)

func signToken(t *testing.T, secret string, claims AccessClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseAccessToken(t *testing.T) {
	service := NewAuthService("test-secret")
	userID := uuid.New()

	tokenString := signToken(t, "test-secret", AccessClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := service.ParseAccessToken(tokenString)

	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	service := NewAuthService("test-secret")

	tokenString := signToken(t, "other-secret", AccessClaims{
		UserID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := service.ParseAccessToken(tokenString)

	assert.ErrorIs(t, err, echolink_errors.ErrUnauthorized)
}

func TestParseAccessTokenExpired(t *testing.T) {
	service := NewAuthService("test-secret")

	tokenString := signToken(t, "test-secret", AccessClaims{
		UserID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := service.ParseAccessToken(tokenString)

	assert.ErrorIs(t, err, echolink_errors.ErrUnauthorized)
}

func TestParseAccessTokenEmpty(t *testing.T) {
	service := NewAuthService("test-secret")

	_, err := service.ParseAccessToken("")

	assert.ErrorIs(t, err, echolink_errors.ErrUnauthorized)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{echolink_errors.ErrInvalidInput, 400},
		{echolink_errors.ErrInvalidTransition, 400},
		{echolink_errors.ErrReceiverBusy, 400},
		{echolink_errors.ErrUnauthorized, 401},
		{echolink_errors.ErrForbidden, 403},
		{echolink_errors.ErrNotFound, 404},
		{echolink_errors.ErrConflict, 409},
		{echolink_errors.ErrRateLimited, 429},
		{assert.AnError, 500},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestUserContextRoundTrip(t *testing.T) {
	userID := uuid.New()

	ctx := WithUserContext(context.Background(), userID)

	got, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, userID, got)

	_, ok = UserIDFromContext(context.Background())
	assert.False(t, ok)
}
