package user

import (
	"context"

	"github.com/delordemm1/lms-api/internal/httpx"
	"github.com/delordemm1/lms-api/internal/validation"
)

// --- DTOs ---

type VerifyEmailRequest struct {
	Body struct {
		Token string `json:"token" validate:"required"`
	}
}

type ResendVerificationRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

// resendMessage is returned whether or not anything was sent.
const resendMessage = "If your account needs verification, a new email is on its way."

// --- Handlers ---

func (h *Handler) VerifyEmailHandler(ctx context.Context, input *VerifyEmailRequest) (*AuthResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	res, err := h.service.VerifyEmail(ctx, input.Body.Token)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toAuthResponse(res), nil
}

// ResendVerificationHandler never reveals whether the address belongs to an account.
func (h *Handler) ResendVerificationHandler(ctx context.Context, input *ResendVerificationRequest) (*MessageResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	if err := h.service.ResendVerificationEmail(ctx, input.Body.Email); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return message(resendMessage), nil
}
