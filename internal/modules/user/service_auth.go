package user

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/delordemm1/lms-api/internal/session"
	"github.com/delordemm1/lms-api/internal/validation"
)

// Register creates a local student account, starts email verification and signs the user in.
func (s *service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	u, err := s.createLocalUser(ctx, input, RoleStudent)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered successfully", "user_id", u.ID)

	s.startEmailVerification(ctx, u)
	return s.issueSession(ctx, u)
}

func (s *service) createLocalUser(ctx context.Context, input RegisterInput, role Role) (*User, error) {
	hashed, err := hashPassword(input.Password, "password", s.bcryptCost)
	if err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		s.logger.Error("failed to hash password", "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	u := &User{
		ID:           id.String(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        normalizeEmail(input.Email),
		PasswordHash: &hashed,
		Role:         role,
		Provider:     ProviderLocal,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		s.logger.Error("failed to create user", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	return u, nil
}

// Login checks the password. Accounts with 2FA get a pending challenge instead of a session.
func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.burnCompare(password)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to find user by email", "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	if !u.HasPassword() {
		s.burnCompare(password)
		return nil, ErrInvalidCredentials
	}
	if !checkPasswordHash(password, *u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if u.TwoFactorEnabled {
		return s.startTwoFactorChallenge(ctx, u)
	}

	res, err := s.issueSession(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in successfully", "user_id", u.ID)
	return &LoginResult{User: res.User, Tokens: &res.Tokens}, nil
}

// startTwoFactorChallenge texts a fresh code and returns the pending token that
// Verify2FA exchanges for a session.
func (s *service) startTwoFactorChallenge(ctx context.Context, u *User) (*LoginResult, error) {
	if u.PhoneNumber == nil || *u.PhoneNumber == "" {
		return nil, ErrInvalidCredentials
	}
	if !allow(ctx, s.smsLimiter, smsLimitKey(u.ID)) {
		return nil, ErrResendTooSoon
	}

	code, err := s.verifier.IssueCode(ctx, u.ID, CodeTypeSMS2FA)
	if err != nil {
		s.logger.Error("failed to issue 2fa code", "user_id", u.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	if err := s.sms.Send2FACode(ctx, *u.PhoneNumber, code); err != nil {
		s.logger.Error("failed to send 2fa code", "user_id", u.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	temp, err := s.sessions.MintPending(u.ID)
	if err != nil {
		s.logger.Error("failed to mint pending token", "user_id", u.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	s.logger.Info("2fa challenge issued", "user_id", u.ID)
	return &LoginResult{Requires2FA: true, TempToken: temp}, nil
}

// Verify2FA completes a pending login. Every failure is reported as invalid credentials.
func (s *service) Verify2FA(ctx context.Context, tempToken, code string) (*AuthResult, error) {
	claims, err := s.sessions.ParsePending(tempToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := s.verifier.VerifyCode(ctx, claims.Subject, code, CodeTypeSMS2FA)
	if err != nil {
		s.logger.Error("failed to verify 2fa code", "user_id", claims.Subject, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	s.logger.Info("2fa login completed", "user_id", u.ID)
	return s.issueSession(ctx, u)
}

// RefreshToken rotates the pair. Only the caller that revokes the presented token gets a new pair.
func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.sessions.ParseRefresh(ctx, refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, ErrInternal.WithCause(err)
	}

	if err := s.sessions.Revoke(ctx, claims); err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to revoke refresh token", "user_id", u.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	return s.issueSession(ctx, u)
}

func (s *service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.sessions.ParseRefresh(ctx, refreshToken)
	if err != nil {
		return ErrInvalidCredentials
	}
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			return ErrInvalidCredentials
		}
		s.logger.Error("failed to revoke refresh token", "user_id", claims.Subject, "error", err)
		return ErrInternal.WithCause(err)
	}
	s.logger.Info("user logged out", "user_id", claims.Subject)
	return nil
}
