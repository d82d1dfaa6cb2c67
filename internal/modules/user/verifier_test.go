package user

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifierClock struct{ t time.Time }

func (c *verifierClock) now() time.Time { return c.t }

func newTestVerifier(t *testing.T) (*Verifier, *fakeRepository, *verifierClock) {
	t.Helper()
	repo := newFakeRepository()
	clock := &verifierClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	v := NewVerifier(repo, time.Hour, 5*time.Minute)
	v.now = clock.now
	return v, repo, clock
}

func TestVerifier_EmailTokenIsSingleUse(t *testing.T) {
	v, repo, _ := newTestVerifier(t)
	ctx := context.Background()

	token, err := v.IssueEmailToken(ctx, "user-1", TokenTypeEmailVerify)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	for hash := range repo.tokens {
		assert.NotEqual(t, token, hash, "plaintext token must not be stored")
		assert.Equal(t, hashSecret(token), hash)
	}

	userID, err := v.ConsumeEmailToken(ctx, token, TokenTypeEmailVerify)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = v.ConsumeEmailToken(ctx, token, TokenTypeEmailVerify)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_EmailTokenTypeMustMatch(t *testing.T) {
	v, _, _ := newTestVerifier(t)
	ctx := context.Background()

	token, err := v.IssueEmailToken(ctx, "user-1", TokenTypePasswordReset)
	require.NoError(t, err)

	_, err = v.ConsumeEmailToken(ctx, token, TokenTypeEmailVerify)
	assert.ErrorIs(t, err, ErrInvalidToken)

	userID, err := v.ConsumeEmailToken(ctx, token, TokenTypePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerifier_ExpiredEmailTokenIsRejectedAndDeleted(t *testing.T) {
	v, repo, clock := newTestVerifier(t)
	ctx := context.Background()

	token, err := v.IssueEmailToken(ctx, "user-1", TokenTypeEmailVerify)
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Hour)
	_, err = v.ConsumeEmailToken(ctx, token, TokenTypeEmailVerify)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Zero(t, repo.tokenCount())
}

func TestVerifier_ReissueInvalidatesEarlierToken(t *testing.T) {
	v, _, _ := newTestVerifier(t)
	ctx := context.Background()

	first, err := v.IssueEmailToken(ctx, "user-1", TokenTypeEmailVerify)
	require.NoError(t, err)
	second, err := v.IssueEmailToken(ctx, "user-1", TokenTypeEmailVerify)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = v.ConsumeEmailToken(ctx, first, TokenTypeEmailVerify)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = v.ConsumeEmailToken(ctx, second, TokenTypeEmailVerify)
	assert.NoError(t, err)
}

func TestVerifier_EmptyTokenIsInvalid(t *testing.T) {
	v, _, _ := newTestVerifier(t)
	_, err := v.ConsumeEmailToken(context.Background(), "", TokenTypeEmailVerify)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_CodeLifecycle(t *testing.T) {
	v, _, _ := newTestVerifier(t)
	ctx := context.Background()

	code, err := v.IssueCode(ctx, "user-1", CodeTypeSMS2FA)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	ok, err := v.VerifyCode(ctx, "user-1", wrong, CodeTypeSMS2FA)
	require.NoError(t, err)
	assert.False(t, ok, "wrong code")

	ok, err = v.VerifyCode(ctx, "user-2", code, CodeTypeSMS2FA)
	require.NoError(t, err)
	assert.False(t, ok, "other user")

	ok, err = v.VerifyCode(ctx, "user-1", code, CodeTypePhoneVerification)
	require.NoError(t, err)
	assert.False(t, ok, "other purpose")

	ok, err = v.VerifyCode(ctx, "user-1", code, CodeTypeSMS2FA)
	require.NoError(t, err)
	assert.True(t, ok, "a wrong attempt must not consume the code")

	ok, err = v.VerifyCode(ctx, "user-1", code, CodeTypeSMS2FA)
	require.NoError(t, err)
	assert.False(t, ok, "codes are single use")
}

func TestVerifier_MalformedCodeNeverMatches(t *testing.T) {
	v, repo, _ := newTestVerifier(t)
	ctx := context.Background()
	repo.err = assert.AnError

	for _, code := range []string{"", "12345", "1234567", "12a456", " 12345"} {
		ok, err := v.VerifyCode(ctx, "user-1", code, CodeTypeSMS2FA)
		assert.NoError(t, err, code)
		assert.False(t, ok, code)
	}
}

func TestVerifier_ExpiredCodeIsRejectedAndRemoved(t *testing.T) {
	v, repo, clock := newTestVerifier(t)
	ctx := context.Background()

	code, err := v.IssueCode(ctx, "user-1", CodeTypeSMS2FA)
	require.NoError(t, err)

	clock.t = clock.t.Add(5 * time.Minute)
	ok, err := v.VerifyCode(ctx, "user-1", code, CodeTypeSMS2FA)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, repo.codeCount())
}

func TestVerifier_ReissuedCodeReplacesUnusedOne(t *testing.T) {
	v, _, _ := newTestVerifier(t)
	ctx := context.Background()

	var first, second string
	var err error
	for first == second {
		first, err = v.IssueCode(ctx, "user-1", CodeTypeSMS2FA)
		require.NoError(t, err)
		second, err = v.IssueCode(ctx, "user-1", CodeTypeSMS2FA)
		require.NoError(t, err)
	}

	ok, err := v.VerifyCode(ctx, "user-1", first, CodeTypeSMS2FA)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.VerifyCode(ctx, "user-1", second, CodeTypeSMS2FA)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifier_ConcurrentVerifySucceedsOnce(t *testing.T) {
	v, _, _ := newTestVerifier(t)
	ctx := context.Background()

	code, err := v.IssueCode(ctx, "user-1", CodeTypeSMS2FA)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := v.VerifyCode(ctx, "user-1", code, CodeTypeSMS2FA)
			if err == nil && ok {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
}

func TestGenerateCode_Format(t *testing.T) {
	for range 200 {
		code, err := generateCode()
		require.NoError(t, err)
		require.True(t, isNumericCode(code), code)
	}
}
