package user

import (
	"context"

	"github.com/delordemm1/lms-api/internal/httpx"
	"github.com/delordemm1/lms-api/internal/validation"
)

// --- DTOs ---

type ProfileResponse struct {
	Body UserDTO
}

type UpdateProfileRequest struct {
	Body struct {
		FirstName *string `json:"firstName,omitempty" validate:"omitempty,min=2,max=255"`
		LastName  *string `json:"lastName,omitempty" validate:"omitempty,min=2,max=255"`
	}
}

// --- Handlers ---

// GetProfileHandler retrieves the profile for the currently authenticated user.
func (h *Handler) GetProfileHandler(ctx context.Context, _ *struct{}) (*ProfileResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	u, err := h.service.GetProfile(ctx, userID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &ProfileResponse{Body: toUserDTO(u)}, nil
}

// UpdateProfileHandler updates the names of the currently authenticated user.
func (h *Handler) UpdateProfileHandler(ctx context.Context, input *UpdateProfileRequest) (*ProfileResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	u, err := h.service.UpdateProfile(ctx, userID, UpdateProfileInput{
		FirstName: input.Body.FirstName,
		LastName:  input.Body.LastName,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &ProfileResponse{Body: toUserDTO(u)}, nil
}

// roleProbe answers role-gated probe endpoints once the middleware lets the caller through.
func (h *Handler) roleProbe(msg string) func(context.Context, *struct{}) (*MessageResponse, error) {
	return func(ctx context.Context, _ *struct{}) (*MessageResponse, error) {
		return message(msg), nil
	}
}
