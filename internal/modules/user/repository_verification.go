package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Emailed tokens ---

// ReplaceVerificationToken deletes the user's earlier tokens of the same type and
// inserts t, in one transaction.
func (r *repository) ReplaceVerificationToken(ctx context.Context, t *VerificationToken) error {
	if t.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		t.ID = id.String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	del, delArgs, err := r.psql.Delete("verification_tokens").
		Where(squirrel.Eq{"user_id": t.UserID, "type": t.Type}).
		ToSql()
	if err != nil {
		return err
	}
	ins, insArgs, err := r.psql.Insert("verification_tokens").
		Columns("id", "user_id", "token_hash", "type", "expires_at", "created_at").
		Values(t.ID, t.UserID, t.TokenHash, t.Type, t.ExpiresAt, t.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, del, delArgs...); err != nil {
			return fmt.Errorf("delete previous tokens: %w", err)
		}
		if _, err := tx.Exec(ctx, ins, insArgs...); err != nil {
			return fmt.Errorf("insert token: %w", err)
		}
		return nil
	})
}

// ConsumeVerificationToken deletes the matching token and returns it, expired or
// not. Only one caller can ever receive a given row.
func (r *repository) ConsumeVerificationToken(ctx context.Context, tokenHash string, typ TokenType) (*VerificationToken, error) {
	query, args, err := r.psql.Delete("verification_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash, "type": typ}).
		Suffix("RETURNING id, user_id, token_hash, type, expires_at, created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	var t VerificationToken
	if err := pgxscan.Get(ctx, r.db, &t, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &t, nil
}

// --- SMS codes ---

// ReplaceVerificationCode marks the user's unused codes of the same type as used
// and inserts c, in one transaction.
func (r *repository) ReplaceVerificationCode(ctx context.Context, c *VerificationCode) error {
	if c.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		c.ID = id.String()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	retire, retireArgs, err := r.psql.Update("verification_codes").
		Set("used", true).
		Set("used_at", now).
		Where(squirrel.Eq{"user_id": c.UserID, "type": c.Type, "used": false}).
		ToSql()
	if err != nil {
		return err
	}
	ins, insArgs, err := r.psql.Insert("verification_codes").
		Columns("id", "user_id", "code_hash", "type", "expires_at", "used", "used_at", "created_at").
		Values(c.ID, c.UserID, c.CodeHash, c.Type, c.ExpiresAt, false, nil, c.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, retire, retireArgs...); err != nil {
			return fmt.Errorf("retire previous codes: %w", err)
		}
		if _, err := tx.Exec(ctx, ins, insArgs...); err != nil {
			return fmt.Errorf("insert code: %w", err)
		}
		return nil
	})
}

// UseVerificationCode marks the matching unused, unexpired code as used. It
// reports true only when this call flipped the row.
func (r *repository) UseVerificationCode(ctx context.Context, userID, codeHash string, typ CodeType, now time.Time) (bool, error) {
	query, args, err := r.psql.Update("verification_codes").
		Set("used", true).
		Set("used_at", now).
		Where(squirrel.And{
			squirrel.Eq{"user_id": userID, "code_hash": codeHash, "type": typ, "used": false},
			squirrel.Gt{"expires_at": now},
		}).
		ToSql()
	if err != nil {
		return false, err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// DeleteExpiredCodes removes one user's expired, unused codes of a type.
func (r *repository) DeleteExpiredCodes(ctx context.Context, userID string, typ CodeType, now time.Time) error {
	query, args, err := r.psql.Delete("verification_codes").
		Where(squirrel.And{
			squirrel.Eq{"user_id": userID, "type": typ, "used": false},
			squirrel.LtOrEq{"expires_at": now},
		}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// --- Cleanup ---

func (r *repository) DeleteStaleCodes(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(ctx, "verification_codes", squirrel.Or{
		squirrel.Eq{"used": true},
		squirrel.LtOrEq{"expires_at": now},
	})
}

func (r *repository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(ctx, "verification_tokens", squirrel.LtOrEq{"expires_at": now})
}

func (r *repository) deleteWhere(ctx context.Context, table string, pred squirrel.Sqlizer) (int64, error) {
	query, args, err := r.psql.Delete(table).Where(pred).ToSql()
	if err != nil {
		return 0, err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup %s: %w", table, err)
	}
	return ct.RowsAffected(), nil
}
