//go:build integration

package user

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delordemm1/lms-api/internal/database/dbtest"
)

func newIntegrationRepo(t *testing.T) Repository {
	t.Helper()
	return NewRepository(dbtest.Pool(t))
}

func seedUser(t *testing.T, repo Repository, email string) *User {
	t.Helper()
	hash := "$2a$10$abcdefghijklmnopqrstuu"
	u := &User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		PasswordHash: &hash,
		Role:         RoleStudent,
		Provider:     ProviderLocal,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestRepository_UserRoundTrip(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "Ada@Example.com")

	got, err := repo.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "ada@example.com", got.Email)

	dup := *u
	dup.ID = uuid.Must(uuid.NewV7()).String()
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrEmailExists)

	require.NoError(t, repo.SetPendingPhone(ctx, u.ID, "+15551234567"))
	require.NoError(t, repo.EnableTwoFactor(ctx, u.ID))
	got, err = repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.TwoFactorEnabled)
	assert.True(t, got.PhoneVerified)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), ErrNotFound)
}

func TestRepository_TokenConsumedOnce(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "ada@example.com")
	v := NewVerifier(repo, time.Hour, time.Minute)

	first, err := v.IssueEmailToken(ctx, u.ID, TokenTypeEmailVerify)
	require.NoError(t, err)
	second, err := v.IssueEmailToken(ctx, u.ID, TokenTypeEmailVerify)
	require.NoError(t, err)

	_, err = v.ConsumeEmailToken(ctx, first, TokenTypeEmailVerify)
	assert.ErrorIs(t, err, ErrInvalidToken)

	userID, err := v.ConsumeEmailToken(ctx, second, TokenTypeEmailVerify)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	_, err = v.ConsumeEmailToken(ctx, second, TokenTypeEmailVerify)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRepository_ConcurrentCodeUse(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "ada@example.com")
	v := NewVerifier(repo, time.Hour, time.Minute)

	code, err := v.IssueCode(ctx, u.ID, CodeTypeSMS2FA)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := v.VerifyCode(ctx, u.ID, code, CodeTypeSMS2FA); err == nil && ok {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), successes.Load())

	n, err := repo.DeleteStaleCodes(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRepository_OAuthStateSingleUse(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertOAuthState(ctx, &OAuthState{
		State: "state-1", Provider: OAuthProviderGoogle, Verifier: "v", ExpiresAt: time.Now().Add(time.Minute),
	}))

	_, err := repo.ConsumeOAuthState(ctx, "state-1", OAuthProviderFacebook)
	assert.ErrorIs(t, err, ErrNotFound, "provider must match")

	st, err := repo.ConsumeOAuthState(ctx, "state-1", OAuthProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "v", st.Verifier)

	_, err = repo.ConsumeOAuthState(ctx, "state-1", OAuthProviderGoogle)
	assert.ErrorIs(t, err, ErrNotFound)
}
