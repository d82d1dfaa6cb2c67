package user

import (
	"context"

	"github.com/delordemm1/lms-api/internal/httpx"
	"github.com/delordemm1/lms-api/internal/validation"
)

// --- DTOs ---

type RegisterRequest struct {
	Body struct {
		FirstName string `json:"firstName" validate:"required,min=2,max=255"`
		LastName  string `json:"lastName" validate:"required,min=2,max=255"`
		Email     string `json:"email" validate:"required,email,max=255"`
		Password  string `json:"password" validate:"required,min=8,maxbytes=72"`
	}
}

type LoginRequest struct {
	Body struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
}

// LoginResponse carries either a session or, when requires2FA is true, only a tempToken.
type LoginResponse struct {
	Body struct {
		User         *UserDTO `json:"user,omitempty"`
		AccessToken  string   `json:"accessToken,omitempty"`
		RefreshToken string   `json:"refreshToken,omitempty"`
		ExpiresIn    int64    `json:"expiresIn,omitempty"`
		Requires2FA  bool     `json:"requires2FA,omitempty"`
		TempToken    string   `json:"tempToken,omitempty"`
	}
}

func toLoginResponse(res *LoginResult) *LoginResponse {
	resp := &LoginResponse{}
	if res.Requires2FA {
		resp.Body.Requires2FA = true
		resp.Body.TempToken = res.TempToken
		return resp
	}
	dto := toUserDTO(res.User)
	resp.Body.User = &dto
	resp.Body.AccessToken = res.Tokens.AccessToken
	resp.Body.RefreshToken = res.Tokens.RefreshToken
	resp.Body.ExpiresIn = res.Tokens.ExpiresIn
	return resp
}

type RefreshTokenRequest struct {
	Body struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
}

type Verify2FARequest struct {
	Body struct {
		TempToken string `json:"tempToken" validate:"required"`
		Code      string `json:"code" validate:"required,len=6,numeric"`
	}
}

// --- Handlers ---

func (h *Handler) RegisterHandler(ctx context.Context, input *RegisterRequest) (*AuthResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	res, err := h.service.Register(ctx, RegisterInput{
		FirstName: input.Body.FirstName,
		LastName:  input.Body.LastName,
		Email:     input.Body.Email,
		Password:  input.Body.Password,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toAuthResponse(res), nil
}

func (h *Handler) LoginHandler(ctx context.Context, input *LoginRequest) (*LoginResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	res, err := h.service.Login(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toLoginResponse(res), nil
}

func (h *Handler) RefreshTokenHandler(ctx context.Context, input *RefreshTokenRequest) (*AuthResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	res, err := h.service.RefreshToken(ctx, input.Body.RefreshToken)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toAuthResponse(res), nil
}

func (h *Handler) LogoutHandler(ctx context.Context, input *RefreshTokenRequest) (*struct{}, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	if err := h.service.Logout(ctx, input.Body.RefreshToken); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &struct{}{}, nil
}

// Verify2FAHandler exchanges the pending token and SMS code for a session.
func (h *Handler) Verify2FAHandler(ctx context.Context, input *Verify2FARequest) (*AuthResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	res, err := h.service.Verify2FA(ctx, input.Body.TempToken, input.Body.Code)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toAuthResponse(res), nil
}
