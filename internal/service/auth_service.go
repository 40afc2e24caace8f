package service

import (
	"crypto/subtle"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/windfall/speakcoach_service/internal/errors"
)

// AuthService verifies Supabase-issued access tokens and the admin token.
type AuthService struct {
	jwtSecret  []byte
	adminToken string
}

// NewAuthService creates a new AuthService. An empty adminToken disables the
// admin endpoints.
func NewAuthService(jwtSecret, adminToken string) *AuthService {
	return &AuthService{
		jwtSecret:  []byte(jwtSecret),
		adminToken: adminToken,
	}
}

// ValidateToken checks an HS256 JWT and returns the user id from its sub claim.
func (s *AuthService) ValidateToken(tokenString string) (uuid.UUID, error) {
	if len(s.jwtSecret) == 0 {
		return uuid.Nil, errors.Unauthorized("authentication not configured")
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, errors.Wrap(errors.ErrUnauthorized, "invalid or expired token", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.Unauthorized("token subject is not a user id")
	}
	return userID, nil
}

// CheckAdminToken compares token with the configured admin token in
// constant time.
func (s *AuthService) CheckAdminToken(token string) bool {
	if s.adminToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1
}
