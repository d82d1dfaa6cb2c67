package user

import (
	"context"
	"errors"
)

// startEmailVerification issues a verification token and hands it to the mailer.
// Failures are logged only: the account exists either way and the user can ask for a resend.
func (s *service) startEmailVerification(ctx context.Context, u *User) {
	token, err := s.verifier.IssueEmailToken(ctx, u.ID, TokenTypeEmailVerify)
	if err != nil {
		s.logger.Error("failed to issue email verification token", "user_id", u.ID, "error", err)
		return
	}
	if err := s.mailer.SendVerificationEmail(ctx, u.Email, token); err != nil {
		s.logger.Error("failed to send verification email", "user_id", u.ID, "error", err)
	}
}

// VerifyEmail redeems an email verification token and signs the user in.
func (s *service) VerifyEmail(ctx context.Context, token string) (*AuthResult, error) {
	userID, err := s.verifier.ConsumeEmailToken(ctx, token, TokenTypeEmailVerify)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, ErrInvalidToken
		}
		s.logger.Error("failed to consume verification token", "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	if err := s.repo.MarkEmailVerified(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, ErrInternal.WithCause(err)
	}
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}

	s.logger.Info("email verified", "user_id", u.ID)
	return s.issueSession(ctx, u)
}

// ResendVerificationEmail sends a new link to an unverified account. It reports
// success for unknown, verified and throttled addresses alike.
func (s *service) ResendVerificationEmail(ctx context.Context, email string) error {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("failed to look up user for resend", "error", err)
		}
		return nil
	}
	if u.EmailVerified {
		return nil
	}
	if !allow(ctx, s.emailLimiter, emailLimitKey("verify", u.Email)) {
		s.logger.Warn("verification email throttled", "user_id", u.ID)
		return nil
	}

	s.startEmailVerification(ctx, u)
	return nil
}
