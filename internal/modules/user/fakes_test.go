package user

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/delordemm1/lms-api/internal/session"
)

// fakeRepository is an in-memory Repository. Conditional updates run under one
// lock so they are as atomic as the SQL they stand in for.
type fakeRepository struct {
	mu     sync.Mutex
	users  map[string]User
	tokens map[string]VerificationToken
	codes  []*VerificationCode
	states map[string]OAuthState
	err    error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:  make(map[string]User),
		tokens: make(map[string]VerificationToken),
		states: make(map[string]OAuthState),
	}
}

func (r *fakeRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.users {
		if existing.Email == normalizeEmail(u.Email) {
			return ErrEmailExists
		}
	}
	now := time.Now()
	u.Email = normalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = *u
	return nil
}

func (r *fakeRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == normalizeEmail(email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepository) FindByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *fakeRepository) List(_ context.Context, p ListParams) ([]*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*User
	for _, u := range r.users {
		if p.Role != "" && u.Role != p.Role {
			continue
		}
		out = append(out, &u)
	}
	return out, nil
}

func (r *fakeRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// update applies fn to the stored user with the given id.
func (r *fakeRepository) update(id string, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return nil
}

func (r *fakeRepository) UpdateProfile(_ context.Context, id, firstName, lastName string) error {
	return r.update(id, func(u *User) { u.FirstName, u.LastName = firstName, lastName })
}

func (r *fakeRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(u *User) { u.PasswordHash = &passwordHash })
}

func (r *fakeRepository) MarkEmailVerified(_ context.Context, id string) error {
	return r.update(id, func(u *User) { u.EmailVerified = true })
}

func (r *fakeRepository) SetPendingPhone(_ context.Context, id, phone string) error {
	return r.update(id, func(u *User) {
		u.PhoneNumber = &phone
		u.PhoneVerified = false
		u.TwoFactorEnabled = false
	})
}

func (r *fakeRepository) EnableTwoFactor(_ context.Context, id string) error {
	return r.update(id, func(u *User) { u.PhoneVerified, u.TwoFactorEnabled = true, true })
}

func (r *fakeRepository) DisableTwoFactor(_ context.Context, id string) error {
	return r.update(id, func(u *User) { u.TwoFactorEnabled = false })
}

func (r *fakeRepository) ReplaceVerificationToken(_ context.Context, t *VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for hash, existing := range r.tokens {
		if existing.UserID == t.UserID && existing.Type == t.Type {
			delete(r.tokens, hash)
		}
	}
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	r.tokens[t.TokenHash] = *t
	return nil
}

func (r *fakeRepository) ConsumeVerificationToken(_ context.Context, tokenHash string, typ TokenType) (*VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	t, ok := r.tokens[tokenHash]
	if !ok || t.Type != typ {
		return nil, ErrNotFound
	}
	delete(r.tokens, tokenHash)
	return &t, nil
}

func (r *fakeRepository) ReplaceVerificationCode(_ context.Context, c *VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	now := time.Now()
	for _, existing := range r.codes {
		if existing.UserID == c.UserID && existing.Type == c.Type && !existing.Used {
			existing.Used = true
			existing.UsedAt = &now
		}
	}
	c.ID = uuid.NewString()
	c.CreatedAt = now
	stored := *c
	r.codes = append(r.codes, &stored)
	return nil
}

func (r *fakeRepository) UseVerificationCode(_ context.Context, userID, codeHash string, typ CodeType, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	for _, c := range r.codes {
		if c.UserID == userID && c.CodeHash == codeHash && c.Type == typ && !c.Used && c.ExpiresAt.After(now) {
			c.Used = true
			c.UsedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepository) DeleteExpiredCodes(_ context.Context, userID string, typ CodeType, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = filterCodes(r.codes, func(c *VerificationCode) bool {
		return c.UserID == userID && c.Type == typ && !c.Used && !c.ExpiresAt.After(now)
	})
	return nil
}

func (r *fakeRepository) InsertOAuthState(_ context.Context, s *OAuthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.CreatedAt = time.Now()
	r.states[s.State] = *s
	return nil
}

func (r *fakeRepository) ConsumeOAuthState(_ context.Context, state string, provider OAuthProvider) (*OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[state]
	if !ok || s.Provider != provider {
		return nil, ErrNotFound
	}
	delete(r.states, state)
	return &s, nil
}

func (r *fakeRepository) DeleteStaleCodes(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.codes)
	r.codes = filterCodes(r.codes, func(c *VerificationCode) bool {
		return c.Used || !c.ExpiresAt.After(now)
	})
	return int64(before - len(r.codes)), nil
}

func (r *fakeRepository) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, t := range r.tokens {
		if !t.ExpiresAt.After(now) {
			delete(r.tokens, hash)
			n++
		}
	}
	return n, nil
}

func (r *fakeRepository) DeleteExpiredOAuthStates(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key, s := range r.states {
		if !s.ExpiresAt.After(now) {
			delete(r.states, key)
			n++
		}
	}
	return n, nil
}

func (r *fakeRepository) codeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}

func (r *fakeRepository) tokenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

func filterCodes(codes []*VerificationCode, drop func(*VerificationCode) bool) []*VerificationCode {
	kept := codes[:0]
	for _, c := range codes {
		if !drop(c) {
			kept = append(kept, c)
		}
	}
	return kept
}

// fakeMailer records the last token sent to each address.
type fakeMailer struct {
	mu     sync.Mutex
	verify map[string]string
	reset  map[string]string
	sent   int
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{verify: make(map[string]string), reset: make(map[string]string)}
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verify[email] = token
	m.sent++
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[email] = token
	m.sent++
	return nil
}

func (m *fakeMailer) verifyToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verify[email]
}

func (m *fakeMailer) resetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset[email]
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

// fakeSMS records the last code texted to each phone.
type fakeSMS struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (s *fakeSMS) Send2FACode(_ context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.codes == nil {
		s.codes = make(map[string]string)
	}
	s.codes[phone] = code
	return nil
}

func (s *fakeSMS) lastCode(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[phone]
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) bool { return false }

type testEnv struct {
	repo     *fakeRepository
	verifier *Verifier
	sessions session.Minter
	mailer   *fakeMailer
	sms      *fakeSMS
	svc      Service
	logger   *slog.Logger
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, opts ...func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:   newFakeRepository(),
		mailer: newFakeMailer(),
		sms:    &fakeSMS{},
		logger: discardLogger(),
	}
	env.verifier = NewVerifier(env.repo, time.Hour, 5*time.Minute)
	env.sessions = session.NewJWTMinter(session.Config{Secret: "test-secret"}, session.NewMemoryRevocationStore())

	cfg := &Config{
		Repo:     env.repo,
		Verifier: env.verifier,
		Sessions: env.sessions,
		Mailer:   env.mailer,
		SMS:      env.sms,
		Logger:   env.logger,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	env.svc = NewService(cfg)
	return env
}

// register creates a local account through the service.
func (env *testEnv) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	res, err := env.svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  password,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res
}

// enable2FA verifies the email of an existing account and turns on SMS 2FA for phone.
func (env *testEnv) enable2FA(t *testing.T, res *AuthResult, phone string) {
	t.Helper()
	ctx := context.Background()
	if _, err := env.svc.VerifyEmail(ctx, env.mailer.verifyToken(res.User.Email)); err != nil {
		t.Fatalf("verify email: %v", err)
	}
	if err := env.svc.Enable2FA(ctx, res.User.ID, phone); err != nil {
		t.Fatalf("enable 2fa: %v", err)
	}
	if err := env.svc.VerifyPhone(ctx, res.User.ID, env.sms.lastCode(phone)); err != nil {
		t.Fatalf("verify phone: %v", err)
	}
}
