// Package auth provides JWT bearer authentication for the graphsearchd API.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims carried by graphsearchd tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the caller's role ("admin" or "operator").
	Role string `json:"role,omitempty"`
}

// IsAdmin returns true if the caller has the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == "admin"
}

// JWTConfig configures the JWT service.
type JWTConfig struct {
	// Secret is the HS256 signing secret, minimum 32 bytes
	Secret string

	// Issuer is stamped into and verified on every token
	Issuer string

	// TokenDuration is the token lifetime
	TokenDuration time.Duration
}

// JWTService signs and validates HS256 tokens.
type JWTService struct {
	secret   []byte
	issuer   string
	duration time.Duration
}

// NewJWTService creates a JWT service. The secret must be at least 32 bytes.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes, got %d", len(cfg.Secret))
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "graphsearchd"
	}
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = time.Hour
	}
	return &JWTService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		duration: cfg.TokenDuration,
	}, nil
}

// GenerateToken issues a signed token for the given subject and role.
func (s *JWTService) GenerateToken(subject, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
