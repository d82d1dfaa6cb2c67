package user

import (
	"time"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Provider records how an account was created.
type Provider string

const (
	ProviderLocal    Provider = "local"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// User represents a user in the system.
// PasswordHash is nil for accounts created through an OAuth provider.
type User struct {
	ID               string    `db:"id"`
	FirstName        string    `db:"first_name"`
	LastName         string    `db:"last_name"`
	Email            string    `db:"email"`
	PasswordHash     *string   `db:"password_hash"`
	Role             Role      `db:"role"`
	EmailVerified    bool      `db:"email_verified"`
	PhoneNumber      *string   `db:"phone_number"`
	PhoneVerified    bool      `db:"phone_verified"`
	TwoFactorEnabled bool      `db:"two_factor_enabled"`
	Provider         Provider  `db:"provider"`
	AvatarURL        *string   `db:"avatar_url"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// userColumns is the column list every user SELECT uses.
var userColumns = []string{
	"id", "first_name", "last_name", "email", "password_hash", "role",
	"email_verified", "phone_number", "phone_verified", "two_factor_enabled",
	"provider", "avatar_url", "created_at", "updated_at",
}

type OAuthProvider string

const (
	OAuthProviderGoogle   OAuthProvider = "google"
	OAuthProviderFacebook OAuthProvider = "facebook"
)

// OAuthState is the single-use CSRF state plus PKCE verifier of an OAuth login.
type OAuthState struct {
	State     string        `db:"state"`
	Provider  OAuthProvider `db:"provider"`
	Verifier  string        `db:"verifier"`
	ExpiresAt time.Time     `db:"expires_at"`
	CreatedAt time.Time     `db:"created_at"`
}

// --- Verification Types ---

// TokenType is the purpose of an emailed link token.
type TokenType string

const (
	TokenTypeEmailVerify   TokenType = "email_verify"
	TokenTypePasswordReset TokenType = "password_reset"
)

// CodeType is the purpose of a 6-digit SMS code.
type CodeType string

const (
	CodeTypeSMS2FA            CodeType = "sms_2fa"
	CodeTypePhoneVerification CodeType = "phone_verification"
)

// VerificationToken is an opaque single-use token sent by email. Only its hash is stored.
type VerificationToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	Type      TokenType `db:"type"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// VerificationCode is a 6-digit code sent by SMS. Only its hash is stored.
type VerificationCode struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	CodeHash  string     `db:"code_hash"`
	Type      CodeType   `db:"type"`
	ExpiresAt time.Time  `db:"expires_at"`
	Used      bool       `db:"used"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
