package user

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// InsertOAuthState inserts a new OAuth state record into the database.
func (r *repository) InsertOAuthState(ctx context.Context, state *OAuthState) error {
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now()
	}

	query, args, err := r.psql.Insert("oauth_states").
		Columns("state", "provider", "verifier", "expires_at", "created_at").
		Values(state.State, state.Provider, state.Verifier, state.ExpiresAt, state.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// ConsumeOAuthState deletes and returns the state issued for provider. A state can
// be consumed once. Expiry is left to the caller.
func (r *repository) ConsumeOAuthState(ctx context.Context, state string, provider OAuthProvider) (*OAuthState, error) {
	query, args, err := r.psql.Delete("oauth_states").
		Where(squirrel.Eq{"state": state, "provider": provider}).
		Suffix("RETURNING state, provider, verifier, expires_at, created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	var s OAuthState
	if err := pgxscan.Get(ctx, r.db, &s, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &s, nil
}

// DeleteExpiredOAuthStates removes abandoned OAuth logins.
func (r *repository) DeleteExpiredOAuthStates(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(ctx, "oauth_states", squirrel.Lt{"expires_at": now})
}
