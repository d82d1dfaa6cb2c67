package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type jwtMinter struct {
	secret []byte
	cfg    Config
	store  RevocationStore
	now    func() time.Time
}

// NewJWTMinter returns an HS256 Minter. A nil store falls back to an in-process one.
func NewJWTMinter(cfg Config, store RevocationStore) Minter {
	return newJWTMinter(cfg, store, time.Now)
}

func newJWTMinter(cfg Config, store RevocationStore, now func() time.Time) *jwtMinter {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 5 * time.Minute
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "lms-api"
	}
	if store == nil {
		store = NewMemoryRevocationStore()
	}
	return &jwtMinter{
		secret: []byte(cfg.Secret),
		cfg:    cfg,
		store:  store,
		now:    now,
	}
}

// Mint signs the access and refresh tokens concurrently; they do not depend on each other.
func (m *jwtMinter) Mint(ctx context.Context, p Principal) (TokenPair, error) {
	if len(m.secret) == 0 || p.ID == "" {
		return TokenPair{}, ErrInvalidToken
	}
	now := m.now()

	var access, refresh string
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		access, err = m.sign(Claims{
			Email:            p.Email,
			Role:             p.Role,
			TokenType:        TokenTypeAccess,
			RegisteredClaims: m.registered(p.ID, now, m.cfg.AccessTTL, ""),
		})
		return err
	})
	g.Go(func() error {
		var err error
		refresh, err = m.sign(Claims{
			TokenType:        TokenTypeRefresh,
			RegisteredClaims: m.registered(p.ID, now, m.cfg.RefreshTTL, uuid.NewString()),
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return TokenPair{}, fmt.Errorf("sign session tokens: %w", err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.cfg.AccessTTL.Seconds()),
	}, nil
}

func (m *jwtMinter) MintPending(userID string) (string, error) {
	if len(m.secret) == 0 || userID == "" {
		return "", ErrInvalidToken
	}
	return m.sign(Claims{
		TokenType:        TokenTypePending,
		Requires2FA:      true,
		RegisteredClaims: m.registered(userID, m.now(), m.cfg.PendingTTL, ""),
	})
}

func (m *jwtMinter) ParseAccess(_ context.Context, token string) (*Claims, error) {
	return m.parse(token, TokenTypeAccess)
}

func (m *jwtMinter) ParseRefresh(ctx context.Context, token string) (*Claims, error) {
	claims, err := m.parse(token, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	revoked, err := m.store.IsRevoked(ctx, claims.ID)
	if err != nil || revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *jwtMinter) ParsePending(token string) (*Claims, error) {
	claims, err := m.parse(token, TokenTypePending)
	if err != nil {
		return nil, err
	}
	if !claims.Requires2FA {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *jwtMinter) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return ErrInvalidToken
	}
	first, err := m.store.Revoke(ctx, claims.ID, ttl)
	if err != nil {
		return err
	}
	if !first {
		return ErrInvalidToken
	}
	return nil
}

func (m *jwtMinter) registered(subject string, now time.Time, ttl time.Duration, id string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        id,
		Issuer:    m.cfg.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (m *jwtMinter) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *jwtMinter) parse(token string, want TokenType) (*Claims, error) {
	if len(m.secret) == 0 || strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	var claims Claims
	if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != want || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
