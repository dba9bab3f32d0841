// Package auth issues and validates the bearer tokens that guard the
// admin endpoints.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenExpiry is how long an admin token is valid unless the issuer
// asks otherwise.
const DefaultTokenExpiry = 12 * time.Hour

// RoleAdmin is the only role accepted by the admin endpoints.
const RoleAdmin = "admin"

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrForbidden    = errors.New("token lacks the admin role")
)

// Claims are the claims carried by an admin token.
type Claims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
}

// TokenConfig holds configuration for the token service.
type TokenConfig struct {
	// SigningKey is the HS256 secret.
	SigningKey string

	// Issuer and Audience are written into and required from every token.
	Issuer   string
	Audience string
}

// TokenService creates and validates HS256 admin tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
}

// NewTokenService creates a token service.
func NewTokenService(cfg TokenConfig) *TokenService {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "weatherlens"
	}
	audience := cfg.Audience
	if audience == "" {
		audience = "weatherlens-admin"
	}
	return &TokenService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Issue creates an admin token for subject valid for ttl (DefaultTokenExpiry
// when zero).
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultTokenExpiry
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        tokenID(),
		},
		Role: RoleAdmin,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing admin token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses a token and checks its signature, issuer, audience,
// expiry and role.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	return claims, nil
}

func tokenID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
