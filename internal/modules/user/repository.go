package user

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/delordemm1/lms-api/internal/database"
)

// ListParams pages through users ordered by creation time.
type ListParams struct {
	Limit  uint64
	Offset uint64
	Role   Role
}

// Repository defines the database operations of the user module.
// Every lookup with more than one criterion is a single conjunctive predicate.
type Repository interface {
	// Users
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, p ListParams) ([]*User, error)
	Delete(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id, firstName, lastName string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id string) error
	SetPendingPhone(ctx context.Context, id, phone string) error
	EnableTwoFactor(ctx context.Context, id string) error
	DisableTwoFactor(ctx context.Context, id string) error

	// Emailed tokens
	ReplaceVerificationToken(ctx context.Context, t *VerificationToken) error
	ConsumeVerificationToken(ctx context.Context, tokenHash string, typ TokenType) (*VerificationToken, error)

	// SMS codes
	ReplaceVerificationCode(ctx context.Context, c *VerificationCode) error
	UseVerificationCode(ctx context.Context, userID, codeHash string, typ CodeType, now time.Time) (bool, error)
	DeleteExpiredCodes(ctx context.Context, userID string, typ CodeType, now time.Time) error

	// OAuth states
	InsertOAuthState(ctx context.Context, state *OAuthState) error
	ConsumeOAuthState(ctx context.Context, state string, provider OAuthProvider) (*OAuthState, error)

	// Cleanup
	DeleteStaleCodes(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredOAuthStates(ctx context.Context, now time.Time) (int64, error)
}

// repository implements the Repository interface using pgx and squirrel.
type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a new user repository with the given database connection.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}
