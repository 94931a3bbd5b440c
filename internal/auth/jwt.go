// Package auth - jwt.go issues and verifies the bearer tokens handed out at
// login. Each token carries the user's role tags and the session it opened.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "servicehub-backoffice"

	// MinSecretLength is the recommended minimum signing secret length
	MinSecretLength = 32
	// DefaultTokenTTL applies when an issuer is created without a TTL
	DefaultTokenTTL = 12 * time.Hour
)

// ErrMissingSecret is returned when no signing secret is configured outside dev mode
var ErrMissingSecret = errors.New("SECURITY ERROR: BKO_JWT_SECRET is required in production. " +
	"Generate a secure secret with: go run scripts/generate-key.go")

// Claims represents the JWT claims structure
type Claims struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	SessionID   string   `json:"session_id,omitempty"`
	SessionType string   `json:"session_type,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token carries role
func (c *Claims) HasRole(role string) bool {
	return HasRole(c.Roles, role)
}

// TokenIssuer signs and verifies HS256 tokens with one shared secret
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer. A zero ttl means DefaultTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns how long issued tokens stay valid
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// ResolveJWTSecret returns the configured secret. In dev mode a missing
// secret is replaced by a random one and a warning is logged; otherwise it is
// an error. Short secrets are accepted with a warning.
func ResolveJWTSecret(configured string, devMode bool) (string, error) {
	if configured == "" {
		if !devMode {
			return "", ErrMissingSecret
		}
		slog.Warn("BKO_JWT_SECRET not set, using an auto-generated secret for development; tokens will not survive a restart")
		return generateRandomSecret(), nil
	}

	if len(configured) < MinSecretLength {
		slog.Warn("BKO_JWT_SECRET is shorter than recommended", "min_length", MinSecretLength)
	}
	return configured, nil
}

// generateRandomSecret creates a cryptographically secure random secret
func generateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

// Issue creates a signed token for an authenticated user and their session
func (i *TokenIssuer) Issue(userID, username string, roles []string, sessionID, sessionType string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)

	claims := &Claims{
		UserID:      userID,
		Username:    username,
		Roles:       roles,
		SessionID:   sessionID,
		SessionType: sessionType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies a token
func (i *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user")
	}
	return claims, nil
}
