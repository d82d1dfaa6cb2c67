package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes the three kinds of signed tokens. Every token carries it
// in the "typ" claim so one kind is never accepted where another is expected.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
	TokenTypePending TokenType = "pending_2fa"
)

// ErrInvalidToken is returned for any token that fails signature, expiry, issuer,
// type or revocation checks. Callers never learn which check failed.
var ErrInvalidToken = errors.New("invalid or expired token")

// Principal is the identity a session is minted for.
type Principal struct {
	ID    string
	Email string
	Role  string
}

// TokenPair is the access/refresh pair returned to clients.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Claims are the JWT claims shared by all token kinds.
// Access tokens carry Email and Role, refresh tokens only the subject and ID,
// pending tokens the subject and Requires2FA.
type Claims struct {
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role,omitempty"`
	TokenType   TokenType `json:"typ"`
	Requires2FA bool      `json:"requires2FA,omitempty"`
	jwt.RegisteredClaims
}

// Config controls token signing and lifetimes.
type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	PendingTTL time.Duration
}

// Minter issues and verifies session tokens.
type Minter interface {
	// Mint signs a fresh access/refresh pair for p.
	Mint(ctx context.Context, p Principal) (TokenPair, error)

	// MintPending signs a short-lived token that only bridges the second login step.
	MintPending(userID string) (string, error)

	ParseAccess(ctx context.Context, token string) (*Claims, error)
	ParseRefresh(ctx context.Context, token string) (*Claims, error)
	ParsePending(token string) (*Claims, error)

	// Revoke invalidates a refresh token for the rest of its lifetime.
	// It returns ErrInvalidToken when another caller revoked the token first.
	Revoke(ctx context.Context, claims *Claims) error
}

// RevocationStore records revoked refresh token IDs until they would have expired anyway.
// Revoke reports whether this call was the one that revoked jti.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
