package services

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	echolink_errors "echolink/pkg/errors"
)

// AuthService verifies access tokens minted by the platform's identity
// service. Token issuance, refresh and session management live there; this
// backend only needs to resolve a token to a user id.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: []byte(jwtSecret)}
}

type AccessClaims struct {
	UserID string `json:"sub"`
	jwt.RegisteredClaims
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, echolink_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echolink_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, echolink_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, echolink_errors.ErrUnauthorized
	}

	return *claims, nil
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, echolink_errors.ErrInvalidInput),
		errors.Is(err, echolink_errors.ErrInvalidTransition),
		errors.Is(err, echolink_errors.ErrReceiverBusy):
		return 400
	case errors.Is(err, echolink_errors.ErrUnauthorized):
		return 401
	case errors.Is(err, echolink_errors.ErrForbidden):
		return 403
	case errors.Is(err, echolink_errors.ErrNotFound):
		return 404
	case errors.Is(err, echolink_errors.ErrAlreadyExists), errors.Is(err, echolink_errors.ErrConflict):
		return 409
	case errors.Is(err, echolink_errors.ErrRateLimited):
		return 429
	default:
		return 500
	}
}

type ctxKey string

var userIDKey ctxKey = "user_id"

func WithUserContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}
