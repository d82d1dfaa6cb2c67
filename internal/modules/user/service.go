package user

import (
	"context"
	"log/slog"
	"sync"

	"github.com/delordemm1/lms-api/internal/config"
	"github.com/delordemm1/lms-api/internal/session"
)

// Service defines the interface for the user module's business logic.
// It owns the login state machine: password, optional SMS challenge, session.
type Service interface {
	// Auth
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Verify2FA(ctx context.Context, tempToken, code string) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error

	// Email verification
	VerifyEmail(ctx context.Context, token string) (*AuthResult, error)
	ResendVerificationEmail(ctx context.Context, email string) error

	// Password reset. RequestPasswordReset never fails and always returns the same message.
	RequestPasswordReset(ctx context.Context, email string) string
	ResetPassword(ctx context.Context, token, newPassword string) (*AuthResult, error)

	// Two-factor
	Enable2FA(ctx context.Context, userID, phoneNumber string) error
	VerifyPhone(ctx context.Context, userID, code string) error
	Disable2FA(ctx context.Context, userID string) error

	// Profile & administration
	GetProfile(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*User, error)
	ListUsers(ctx context.Context, p ListParams) ([]*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	DeleteUser(ctx context.Context, id string) error

	// OAuth
	InitiateOAuthLogin(ctx context.Context, provider OAuthProvider) (redirectURL string, err error)
	HandleOAuthCallback(ctx context.Context, provider OAuthProvider, state, code string) (*LoginResult, error)
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type CreateUserInput struct {
	RegisterInput
	Role Role
}

type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
}

// AuthResult is returned by every step that ends with a session.
type AuthResult struct {
	User   *User
	Tokens session.TokenPair
}

// LoginResult is either a session or, for 2FA accounts, a pending challenge.
type LoginResult struct {
	User        *User
	Tokens      *session.TokenPair
	Requires2FA bool
	TempToken   string
}

// Mailer sends the emailed link tokens. Implementations should not block on delivery.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// SMSSender delivers a code and reports delivery failures.
type SMSSender interface {
	Send2FACode(ctx context.Context, phone, code string) error
}

// Limiter throttles outgoing messages per key.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type service struct {
	repo         Repository
	verifier     *Verifier
	sessions     session.Minter
	mailer       Mailer
	sms          SMSSender
	smsLimiter   Limiter
	emailLimiter Limiter
	oauth        map[OAuthProvider]OAuth
	bcryptCost   int
	dummyHash    func() []byte
	logger       *slog.Logger
}

// Config holds the dependencies for the user service.
type Config struct {
	Repo         Repository
	Verifier     *Verifier
	Sessions     session.Minter
	Mailer       Mailer
	SMS          SMSSender
	SMSLimiter   Limiter
	EmailLimiter Limiter
	Logger       *slog.Logger
	Config       *config.Config

	// OAuthProviders overrides the providers built from Config. Mostly for tests.
	OAuthProviders map[OAuthProvider]OAuth
}

// NewService creates a new user service with the given dependencies.
func NewService(cfg *Config) Service {
	s := &service{
		repo:         cfg.Repo,
		verifier:     cfg.Verifier,
		sessions:     cfg.Sessions,
		mailer:       cfg.Mailer,
		sms:          cfg.SMS,
		smsLimiter:   cfg.SMSLimiter,
		emailLimiter: cfg.EmailLimiter,
		oauth:        cfg.OAuthProviders,
		bcryptCost:   minBcryptCost,
		logger:       cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if cfg.Config != nil {
		s.bcryptCost = max(cfg.Config.Auth.BcryptCost, minBcryptCost)
		if s.oauth == nil {
			s.oauth = oauthProvidersFromConfig(cfg.Config)
		}
	}
	cost := s.bcryptCost
	s.dummyHash = sync.OnceValue(func() []byte { return newDummyHash(cost) })
	return s
}
