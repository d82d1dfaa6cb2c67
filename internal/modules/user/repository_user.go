package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/delordemm1/lms-api/internal/database"
)

// Create inserts a new user record. A duplicate email yields ErrEmailExists.
func (r *repository) Create(ctx context.Context, user *User) error {
	now := time.Now()
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := r.psql.Insert("users").
		Columns(
			"id", "first_name", "last_name", "email", "password_hash", "role",
			"email_verified", "phone_number", "phone_verified", "two_factor_enabled",
			"provider", "avatar_url", "created_at", "updated_at",
		).
		Values(
			user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Role,
			user.EmailVerified, user.PhoneNumber, user.PhoneVerified, user.TwoFactorEnabled,
			user.Provider, user.AvatarURL, user.CreatedAt, user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return err
	}

	if _, err = r.db.Exec(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrEmailExists.WithCause(err)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail retrieves a user by email address, case-insensitively.
// It returns ErrNotFound if no user is found.
func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, squirrel.Eq{"email": normalizeEmail(email)})
}

// FindByID retrieves a user by their unique ID.
// It returns ErrNotFound if no user is found.
func (r *repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

func (r *repository) findOne(ctx context.Context, condition squirrel.Sqlizer) (*User, error) {
	query, args, err := r.psql.Select(userColumns...).
		From("users").
		Where(condition).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := pgxscan.Get(ctx, r.db, &user, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) List(ctx context.Context, p ListParams) ([]*User, error) {
	if p.Limit == 0 || p.Limit > 100 {
		p.Limit = 50
	}
	q := r.psql.Select(userColumns...).
		From("users").
		OrderBy("created_at DESC", "id").
		Limit(p.Limit).
		Offset(p.Offset)
	if p.Role != "" {
		q = q.Where(squirrel.Eq{"role": p.Role})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var users []*User
	if err := pgxscan.Select(ctx, r.db, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}

// Delete hard-deletes a user. Tokens and codes go with it through ON DELETE CASCADE.
func (r *repository) Delete(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateProfile(ctx context.Context, id, firstName, lastName string) error {
	return r.updateFields(ctx, id, map[string]any{
		"first_name": firstName,
		"last_name":  lastName,
	})
}

func (r *repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateFields(ctx, id, map[string]any{"password_hash": passwordHash})
}

func (r *repository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.updateFields(ctx, id, map[string]any{"email_verified": true})
}

// SetPendingPhone stores a new phone number awaiting verification. Until it is
// verified the account cannot use SMS 2FA.
func (r *repository) SetPendingPhone(ctx context.Context, id, phone string) error {
	return r.updateFields(ctx, id, map[string]any{
		"phone_number":       phone,
		"phone_verified":     false,
		"two_factor_enabled": false,
	})
}

func (r *repository) EnableTwoFactor(ctx context.Context, id string) error {
	return r.updateFields(ctx, id, map[string]any{
		"phone_verified":     true,
		"two_factor_enabled": true,
	})
}

func (r *repository) DisableTwoFactor(ctx context.Context, id string) error {
	return r.updateFields(ctx, id, map[string]any{"two_factor_enabled": false})
}

// updateFields sets the given columns plus updated_at on one user row.
func (r *repository) updateFields(ctx context.Context, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	query, args, err := r.psql.Update("users").
		SetMap(fields).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
