package user

import (
	"context"

	"github.com/delordemm1/lms-api/internal/httpx"
)

// --- DTOs ---

// OAuthLoginRequest defines the provider being requested from the URL path.
type OAuthLoginRequest struct {
	Provider string `path:"provider" enum:"google,facebook"`
}

// OAuthLoginResponse returns the consent URL instead of redirecting, so a
// frontend proxy can drive the flow.
type OAuthLoginResponse struct {
	Body struct {
		RedirectURL string `json:"redirectUrl"`
	}
}

// OAuthCallbackRequest defines the query parameters sent by the OAuth provider.
type OAuthCallbackRequest struct {
	Provider string `path:"provider" enum:"google,facebook"`
	Code     string `query:"code" required:"true"`
	State    string `query:"state" required:"true"`
}

// --- Handlers ---

// OAuthLoginHandler initiates the OAuth flow by returning a redirect URL.
func (h *Handler) OAuthLoginHandler(ctx context.Context, input *OAuthLoginRequest) (*OAuthLoginResponse, error) {
	h.logger.Info("initiating oauth login", "provider", input.Provider)

	redirectURL, err := h.service.InitiateOAuthLogin(ctx, OAuthProvider(input.Provider))
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &OAuthLoginResponse{}
	resp.Body.RedirectURL = redirectURL
	return resp, nil
}

// OAuthCallbackHandler completes the flow. Accounts with 2FA get a tempToken.
func (h *Handler) OAuthCallbackHandler(ctx context.Context, input *OAuthCallbackRequest) (*LoginResponse, error) {
	res, err := h.service.HandleOAuthCallback(ctx, OAuthProvider(input.Provider), input.State, input.Code)
	if err != nil {
		h.logger.Warn("oauth callback failed", "provider", input.Provider, "error", err)
		return nil, httpx.ToProblem(ctx, err)
	}
	return toLoginResponse(res), nil
}
