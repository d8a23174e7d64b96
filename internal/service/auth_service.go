package service

import (
	"crypto/subtle"
	"fmt"
	"time"

	"evote-api/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AdminTokenTTL bounds an admin session.
const AdminTokenTTL = 12 * time.Hour

// AuthService gates the admin dashboard: a shared password is exchanged
// for a short-lived bearer token. This is an operator convenience gate,
// not user authentication; there are no accounts.
type AuthService struct {
	password []byte
	secret   []byte
	logger   *zap.Logger
}

func NewAuthService(password, secret string, logger *zap.Logger) *AuthService {
	return &AuthService{
		password: []byte(password),
		secret:   []byte(secret),
		logger:   logger,
	}
}

// Login exchanges the shared admin password for a signed token.
func (s *AuthService) Login(password string) (string, error) {
	if len(s.password) == 0 {
		return "", errors.NewAuthenticationError("admin access is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(password), s.password) != 1 {
		s.logger.Warn("Rejected admin login attempt")
		return "", errors.NewAuthenticationError("invalid admin password")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(AdminTokenTTL)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}

	s.logger.Info("Admin logged in")
	return signed, nil
}

// ValidateToken verifies an admin bearer token.
func (s *AuthService) ValidateToken(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return errors.NewAuthenticationError("invalid or expired admin token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != "admin" {
		return errors.NewAuthenticationError("invalid admin token")
	}
	return nil
}
