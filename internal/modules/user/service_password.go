package user

import (
	"context"
	"errors"

	"github.com/delordemm1/lms-api/internal/validation"
)

// PasswordResetMessage is the only answer a reset request ever gets.
const PasswordResetMessage = "If your email exists in our system, you will receive a password reset link."

// RequestPasswordReset emails a reset link when a password account exists for email.
// The result is the same for every input; errors are logged, never returned.
func (s *service) RequestPasswordReset(ctx context.Context, email string) string {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("failed to look up user for password reset", "error", err)
		}
		return PasswordResetMessage
	}
	if !u.HasPassword() {
		return PasswordResetMessage
	}
	if !allow(ctx, s.emailLimiter, emailLimitKey("reset", u.Email)) {
		s.logger.Warn("password reset email throttled", "user_id", u.ID)
		return PasswordResetMessage
	}

	token, err := s.verifier.IssueEmailToken(ctx, u.ID, TokenTypePasswordReset)
	if err != nil {
		s.logger.Error("failed to issue password reset token", "user_id", u.ID, "error", err)
		return PasswordResetMessage
	}
	if err := s.mailer.SendPasswordResetEmail(ctx, u.Email, token); err != nil {
		s.logger.Error("failed to send password reset email", "user_id", u.ID, "error", err)
	}
	return PasswordResetMessage
}

// ResetPassword redeems a reset token, stores the new password and signs the user in.
// The password is hashed first so a rejected password leaves the token usable.
func (s *service) ResetPassword(ctx context.Context, token, newPassword string) (*AuthResult, error) {
	hashed, err := hashPassword(newPassword, "newPassword", s.bcryptCost)
	if err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		return nil, ErrInternal.WithCause(err)
	}

	userID, err := s.verifier.ConsumeEmailToken(ctx, token, TokenTypePasswordReset)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, ErrInvalidToken
		}
		s.logger.Error("failed to consume reset token", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hashed); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		s.logger.Error("failed to update password", "user_id", userID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	s.logger.Info("password reset completed", "user_id", u.ID)
	return s.issueSession(ctx, u)
}
