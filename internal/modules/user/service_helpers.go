package user

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/delordemm1/lms-api/internal/session"
	"github.com/delordemm1/lms-api/internal/validation"
)

const minBcryptCost = 10

// hashPassword uses bcrypt to generate a hash from a plaintext password.
// Passwords bcrypt cannot take are reported as a ValidationError on field.
func hashPassword(password, field string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", validation.NewFieldError(field, "must be at most 72 bytes")
		}
		return "", err
	}
	return string(b), nil
}

// checkPasswordHash compares a plaintext password with a bcrypt hash.
func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func newDummyHash(cost int) []byte {
	b, err := bcrypt.GenerateFromPassword([]byte("lms-timing-equalizer"), cost)
	if err != nil {
		panic(fmt.Sprintf("bcrypt dummy hash: %v", err))
	}
	return b
}

// burnCompare spends the same bcrypt work as a real check when there is no hash to check.
func (s *service) burnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
}

func principalOf(u *User) session.Principal {
	return session.Principal{ID: u.ID, Email: u.Email, Role: string(u.Role)}
}

// issueSession mints a token pair for u.
func (s *service) issueSession(ctx context.Context, u *User) (*AuthResult, error) {
	pair, err := s.sessions.Mint(ctx, principalOf(u))
	if err != nil {
		s.logger.Error("failed to mint session", "user_id", u.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	return &AuthResult{User: u, Tokens: pair}, nil
}

func allow(ctx context.Context, l Limiter, key string) bool {
	if l == nil {
		return true
	}
	return l.Allow(ctx, key)
}

func smsLimitKey(userID string) string        { return "sms:" + userID }
func emailLimitKey(kind, email string) string { return kind + ":" + normalizeEmail(email) }
