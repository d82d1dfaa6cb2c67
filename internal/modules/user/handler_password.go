package user

import (
	"context"

	"github.com/delordemm1/lms-api/internal/httpx"
	"github.com/delordemm1/lms-api/internal/validation"
)

// --- DTOs ---

type ForgotPasswordRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

type ResetPasswordRequest struct {
	Body struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=8,maxbytes=72"`
	}
}

// --- Handlers ---

// ForgotPasswordHandler answers every well-formed request with the same body.
func (h *Handler) ForgotPasswordHandler(ctx context.Context, input *ForgotPasswordRequest) (*MessageResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	return message(h.service.RequestPasswordReset(ctx, input.Body.Email)), nil
}

func (h *Handler) ResetPasswordHandler(ctx context.Context, input *ResetPasswordRequest) (*AuthResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	res, err := h.service.ResetPassword(ctx, input.Body.Token, input.Body.NewPassword)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toAuthResponse(res), nil
}
