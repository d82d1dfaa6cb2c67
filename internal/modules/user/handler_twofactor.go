package user

import (
	"context"

	"github.com/delordemm1/lms-api/internal/httpx"
	"github.com/delordemm1/lms-api/internal/validation"
)

type Enable2FARequest struct {
	Body struct {
		PhoneNumber string `json:"phoneNumber" validate:"required,e164"`
	}
}

type VerifyPhoneRequest struct {
	Body struct {
		Code string `json:"code" validate:"required,len=6,numeric"`
	}
}

func (h *Handler) Enable2FAHandler(ctx context.Context, input *Enable2FARequest) (*MessageResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	if err := h.service.Enable2FA(ctx, userID, input.Body.PhoneNumber); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return message("Verification code sent to your phone"), nil
}

func (h *Handler) VerifyPhoneHandler(ctx context.Context, input *VerifyPhoneRequest) (*MessageResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	if err := h.service.VerifyPhone(ctx, userID, input.Body.Code); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return message("2FA enabled successfully"), nil
}

func (h *Handler) Disable2FAHandler(ctx context.Context, _ *struct{}) (*MessageResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	if err := h.service.Disable2FA(ctx, userID); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return message("2FA disabled successfully"), nil
}
