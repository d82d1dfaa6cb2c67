package user

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/delordemm1/lms-api/internal/contextx"
	"github.com/delordemm1/lms-api/internal/middleware"
	"github.com/delordemm1/lms-api/internal/session"
)

// Handler holds the dependencies for the user module's HTTP handlers.
type Handler struct {
	service  Service
	logger   *slog.Logger
	sessions session.Minter
}

// NewHandler creates a new handler for the user module.
func NewHandler(service Service, logger *slog.Logger, sessions session.Minter) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		sessions: sessions,
	}
}

var bearer = []map[string][]string{{"bearer": {}}}

// RegisterRoutes sets up the routing for the user module.
func (h *Handler) RegisterRoutes(api huma.API) {
	authn := middleware.Authenticate(h.sessions, h.logger)
	admin := huma.Middlewares{authn, middleware.RequireRole(string(RoleAdmin))}

	// --- Authentication ---
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new user",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusCreated,
	}, h.RegisterHandler)

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with email and password",
		Tags:        []string{"auth"},
	}, h.LoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh-token",
		Summary:     "Exchange a refresh token for a new token pair",
		Tags:        []string{"auth"},
	}, h.RefreshTokenHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		Summary:       "Revoke a refresh token",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusNoContent,
	}, h.LogoutHandler)

	// --- Email verification ---
	huma.Register(api, huma.Operation{
		OperationID: "verify-email",
		Method:      http.MethodPost,
		Path:        "/auth/verify-email",
		Summary:     "Verify an email address",
		Tags:        []string{"auth"},
	}, h.VerifyEmailHandler)

	huma.Register(api, huma.Operation{
		OperationID: "resend-verification-email",
		Method:      http.MethodPost,
		Path:        "/auth/verify-email/resend",
		Summary:     "Send a new verification email",
		Tags:        []string{"auth"},
	}, h.ResendVerificationHandler)

	// --- Password management ---
	huma.Register(api, huma.Operation{
		OperationID: "forgot-password",
		Method:      http.MethodPost,
		Path:        "/auth/password/forgot",
		Summary:     "Request a password reset link",
		Tags:        []string{"auth"},
	}, h.ForgotPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID: "reset-password",
		Method:      http.MethodPost,
		Path:        "/auth/password/reset",
		Summary:     "Reset password with a token",
		Tags:        []string{"auth"},
	}, h.ResetPasswordHandler)

	// --- Two-factor ---
	huma.Register(api, huma.Operation{
		OperationID: "enable-2fa",
		Method:      http.MethodPost,
		Path:        "/auth/2fa/enable",
		Summary:     "Register a phone number for SMS two-factor authentication",
		Tags:        []string{"2fa"},
		Security:    bearer,
		Middlewares: huma.Middlewares{authn},
	}, h.Enable2FAHandler)

	huma.Register(api, huma.Operation{
		OperationID: "verify-phone",
		Method:      http.MethodPost,
		Path:        "/auth/2fa/verify-phone",
		Summary:     "Confirm the phone number and turn on two-factor authentication",
		Tags:        []string{"2fa"},
		Security:    bearer,
		Middlewares: huma.Middlewares{authn},
	}, h.VerifyPhoneHandler)

	huma.Register(api, huma.Operation{
		OperationID: "verify-2fa",
		Method:      http.MethodPost,
		Path:        "/auth/2fa/verify",
		Summary:     "Complete a login with the SMS code",
		Tags:        []string{"2fa"},
	}, h.Verify2FAHandler)

	huma.Register(api, huma.Operation{
		OperationID: "disable-2fa",
		Method:      http.MethodPost,
		Path:        "/auth/2fa/disable",
		Summary:     "Turn off two-factor authentication",
		Tags:        []string{"2fa"},
		Security:    bearer,
		Middlewares: huma.Middlewares{authn},
	}, h.Disable2FAHandler)

	// --- OAuth ---
	huma.Register(api, huma.Operation{
		OperationID: "oauth-login",
		Method:      http.MethodGet,
		Path:        "/auth/oauth/{provider}",
		Summary:     "Initiate OAuth login",
		Tags:        []string{"oauth"},
	}, h.OAuthLoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "oauth-callback",
		Method:      http.MethodGet,
		Path:        "/auth/oauth/{provider}/callback",
		Summary:     "Handle OAuth callback",
		Tags:        []string{"oauth"},
	}, h.OAuthCallbackHandler)

	// --- Profile ---
	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/auth/profile",
		Summary:     "Get the current user's profile",
		Tags:        []string{"profile"},
		Security:    bearer,
		Middlewares: huma.Middlewares{authn},
	}, h.GetProfileHandler)

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPatch,
		Path:        "/auth/profile",
		Summary:     "Update the current user's profile",
		Tags:        []string{"profile"},
		Security:    bearer,
		Middlewares: huma.Middlewares{authn},
	}, h.UpdateProfileHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-probe",
		Method:      http.MethodGet,
		Path:        "/auth/admin",
		Summary:     "Admin only endpoint",
		Tags:        []string{"profile"},
		Security:    bearer,
		Middlewares: admin,
	}, h.roleProbe("Admin access granted"))

	huma.Register(api, huma.Operation{
		OperationID: "instructor-probe",
		Method:      http.MethodGet,
		Path:        "/auth/instructor",
		Summary:     "Instructor only endpoint",
		Tags:        []string{"profile"},
		Security:    bearer,
		Middlewares: huma.Middlewares{authn, middleware.RequireRole(string(RoleInstructor))},
	}, h.roleProbe("Instructor access granted"))

	// --- User administration ---
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create a user (admin only)",
		Tags:          []string{"users"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
		Middlewares:   admin,
	}, h.CreateUserHandler)

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users (admin only)",
		Tags:        []string{"users"},
		Security:    bearer,
		Middlewares: admin,
	}, h.ListUsersHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{id}",
		Summary:     "Get a user by ID (admin only)",
		Tags:        []string{"users"},
		Security:    bearer,
		Middlewares: admin,
	}, h.GetUserHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-user",
		Method:        http.MethodDelete,
		Path:          "/users/{id}",
		Summary:       "Delete a user (admin only)",
		Tags:          []string{"users"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   admin,
	}, h.DeleteUserHandler)
}

// --- Shared DTOs ---

// UserDTO is the public view of a user. Password hashes never leave the service.
type UserDTO struct {
	ID               string    `json:"id"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Email            string    `json:"email"`
	Role             Role      `json:"role"`
	EmailVerified    bool      `json:"emailVerified"`
	PhoneNumber      *string   `json:"phoneNumber,omitempty"`
	PhoneVerified    bool      `json:"phoneVerified"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	Provider         Provider  `json:"provider"`
	AvatarURL        *string   `json:"avatarUrl,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toUserDTO(u *User) UserDTO {
	return UserDTO{
		ID:               u.ID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Email,
		Role:             u.Role,
		EmailVerified:    u.EmailVerified,
		PhoneNumber:      u.PhoneNumber,
		PhoneVerified:    u.PhoneVerified,
		TwoFactorEnabled: u.TwoFactorEnabled,
		Provider:         u.Provider,
		AvatarURL:        u.AvatarURL,
		CreatedAt:        u.CreatedAt,
	}
}

// AuthBody is the body of every response that carries a new session.
type AuthBody struct {
	User         UserDTO `json:"user"`
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
	ExpiresIn    int64   `json:"expiresIn"`
}

type AuthResponse struct {
	Body AuthBody
}

func toAuthResponse(res *AuthResult) *AuthResponse {
	return &AuthResponse{Body: AuthBody{
		User:         toUserDTO(res.User),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresIn:    res.Tokens.ExpiresIn,
	}}
}

type MessageResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

func message(msg string) *MessageResponse {
	resp := &MessageResponse{}
	resp.Body.Message = msg
	return resp
}

// callerID returns the authenticated user's ID set by middleware.Authenticate.
func callerID(ctx context.Context) (string, error) {
	id, ok := contextx.UserID(ctx)
	if !ok {
		return "", ErrUnauthorized
	}
	return id, nil
}
