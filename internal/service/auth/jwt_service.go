package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/volthost/volthost-api/internal/ports"
)

// Claims represents the custom JWT claims used by the application.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// JWTService issues and validates HS256 host tokens.
type JWTService struct {
	secret   string
	duration time.Duration
	log      *zap.Logger
}

// NewJWTService creates a new JWTService instance.
func NewJWTService(secret string, duration time.Duration, log *zap.Logger) *JWTService {
	return &JWTService{
		secret:   secret,
		duration: duration,
		log:      log,
	}
}

// Generate creates a signed access token for the given host.
// The token carries sub (host ID), role, exp, and jti.
func (s *JWTService) Generate(hostID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   hostID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		s.log.Error("failed to sign token", zap.String("host_id", hostID), zap.Error(err))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning the host identity.
func (s *JWTService) Validate(tokenStr string) (*ports.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return &ports.TokenClaims{HostID: claims.Subject, Role: claims.Role}, nil
}
