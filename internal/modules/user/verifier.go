package user

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	emailTokenBytes = 32
	codeDigits      = 6
)

var codeSpace = big.NewInt(1_000_000)

// Verifier issues and checks emailed tokens and SMS codes.
// Only SHA-256 hashes of either ever reach the database.
type Verifier struct {
	repo     Repository
	tokenTTL time.Duration
	codeTTL  time.Duration
	now      func() time.Time
}

func NewVerifier(repo Repository, tokenTTL, codeTTL time.Duration) *Verifier {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if codeTTL <= 0 {
		codeTTL = 5 * time.Minute
	}
	return &Verifier{
		repo:     repo,
		tokenTTL: tokenTTL,
		codeTTL:  codeTTL,
		now:      time.Now,
	}
}

// IssueEmailToken creates a fresh token of typ for userID and invalidates any earlier one.
func (v *Verifier) IssueEmailToken(ctx context.Context, userID string, typ TokenType) (string, error) {
	token, err := generateSecureToken(emailTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	err = v.repo.ReplaceVerificationToken(ctx, &VerificationToken{
		UserID:    userID,
		TokenHash: hashSecret(token),
		Type:      typ,
		ExpiresAt: v.now().Add(v.tokenTTL),
	})
	if err != nil {
		return "", fmt.Errorf("store %s token: %w", typ, err)
	}
	return token, nil
}

// ConsumeEmailToken redeems a token and returns its owner. The token is gone
// afterwards whether or not it had expired.
func (v *Verifier) ConsumeEmailToken(ctx context.Context, token string, typ TokenType) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	t, err := v.repo.ConsumeVerificationToken(ctx, hashSecret(token), typ)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if !v.now().Before(t.ExpiresAt) {
		return "", ErrInvalidToken
	}
	return t.UserID, nil
}

// IssueCode creates a fresh 6-digit code of typ for userID and retires any earlier unused one.
func (v *Verifier) IssueCode(ctx context.Context, userID string, typ CodeType) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	err = v.repo.ReplaceVerificationCode(ctx, &VerificationCode{
		UserID:    userID,
		CodeHash:  hashSecret(code),
		Type:      typ,
		ExpiresAt: v.now().Add(v.codeTTL),
	})
	if err != nil {
		return "", fmt.Errorf("store %s code: %w", typ, err)
	}
	return code, nil
}

// VerifyCode consumes a matching unused, unexpired code. A wrong code consumes nothing.
// Of several concurrent calls with the same code at most one returns true.
func (v *Verifier) VerifyCode(ctx context.Context, userID, code string, typ CodeType) (bool, error) {
	if userID == "" || !isNumericCode(code) {
		return false, nil
	}
	now := v.now()
	ok, err := v.repo.UseVerificationCode(ctx, userID, hashSecret(code), typ, now)
	if err != nil {
		return false, err
	}
	if !ok {
		// best effort; the sweeper catches anything left behind
		_ = v.repo.DeleteExpiredCodes(ctx, userID, typ, now)
	}
	return ok, nil
}

// generateSecureToken creates a random, URL-safe string from n random bytes.
func generateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// generateCode draws uniformly from 000000-999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func isNumericCode(code string) bool {
	if len(code) != codeDigits {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// hashSecret returns the hex SHA-256 of a token or code.
func hashSecret(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
