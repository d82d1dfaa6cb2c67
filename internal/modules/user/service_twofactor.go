package user

import (
	"context"
	"errors"
)

// Enable2FA stores phoneNumber as pending and texts it a verification code.
// 2FA switches on only once VerifyPhone succeeds.
func (s *service) Enable2FA(ctx context.Context, userID, phoneNumber string) error {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return s.lookupError(err)
	}
	if !u.EmailVerified {
		return ErrEmailNotVerified
	}
	if !allow(ctx, s.smsLimiter, smsLimitKey(u.ID)) {
		return ErrResendTooSoon
	}

	if err := s.repo.SetPendingPhone(ctx, u.ID, phoneNumber); err != nil {
		return s.lookupError(err)
	}
	code, err := s.verifier.IssueCode(ctx, u.ID, CodeTypePhoneVerification)
	if err != nil {
		s.logger.Error("failed to issue phone verification code", "user_id", u.ID, "error", err)
		return ErrInternal.WithCause(err)
	}
	if err := s.sms.Send2FACode(ctx, phoneNumber, code); err != nil {
		s.logger.Error("failed to send phone verification code", "user_id", u.ID, "error", err)
		return ErrInternal.WithCause(err)
	}

	s.logger.Info("phone verification code sent", "user_id", u.ID)
	return nil
}

// VerifyPhone confirms the pending phone number and turns 2FA on.
func (s *service) VerifyPhone(ctx context.Context, userID, code string) error {
	ok, err := s.verifier.VerifyCode(ctx, userID, code, CodeTypePhoneVerification)
	if err != nil {
		s.logger.Error("failed to verify phone code", "user_id", userID, "error", err)
		return ErrInternal.WithCause(err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if err := s.repo.EnableTwoFactor(ctx, userID); err != nil {
		return s.lookupError(err)
	}
	s.logger.Info("2fa enabled", "user_id", userID)
	return nil
}

func (s *service) Disable2FA(ctx context.Context, userID string) error {
	if err := s.repo.DisableTwoFactor(ctx, userID); err != nil {
		return s.lookupError(err)
	}
	s.logger.Info("2fa disabled", "user_id", userID)
	return nil
}

// lookupError keeps ErrNotFound and hides everything else behind ErrInternal.
func (s *service) lookupError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	s.logger.Error("user repository error", "error", err)
	return ErrInternal.WithCause(err)
}
