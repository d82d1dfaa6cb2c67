package user

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (humatest.TestAPI, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	_, api := humatest.New(t)
	NewHandler(env.svc, env.logger, env.sessions).RegisterRoutes(api)
	return api, env
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

type problemBody struct {
	Status int    `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func registerBody(email string) map[string]any {
	return map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     email,
		"password":  "s3cret-pass",
	}
}

func TestHandler_RegisterLoginProfile(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Post("/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	reg := decode[AuthBody](t, resp.Body.Bytes())
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.AccessToken)
	assert.NotContains(t, resp.Body.String(), "password")

	resp = api.Post("/auth/login", map[string]any{"email": "ada@example.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	login := decode[map[string]any](t, resp.Body.Bytes())
	assert.NotContains(t, login, "requires2FA")
	assert.NotEmpty(t, login["accessToken"])

	resp = api.Get("/auth/profile", "Authorization: Bearer "+reg.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	profile := decode[UserDTO](t, resp.Body.Bytes())
	assert.Equal(t, reg.User.ID, profile.ID)
}

func TestHandler_RegisterValidationAndConflict(t *testing.T) {
	api, _ := newTestAPI(t)

	body := registerBody("not-an-email")
	resp := api.Post("/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "ErrValidation", decode[problemBody](t, resp.Body.Bytes()).Code)

	require.Equal(t, http.StatusCreated, api.Post("/auth/register", registerBody("ada@example.com")).Code)
	resp = api.Post("/auth/register", registerBody("ada@example.com"))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "ErrEmailExists", decode[problemBody](t, resp.Body.Bytes()).Code)
}

func TestHandler_RegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	api, _ := newTestAPI(t)

	body := registerBody("ada@example.com")
	body["password"] = strings.Repeat("é", 40)
	resp := api.Post("/auth/register", body)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Equal(t, "ErrValidation", decode[problemBody](t, resp.Body.Bytes()).Code)
}

func TestHandler_LoginFailure(t *testing.T) {
	api, _ := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.Post("/auth/register", registerBody("ada@example.com")).Code)

	wrong := api.Post("/auth/login", map[string]any{"email": "ada@example.com", "password": "nope-nope"})
	unknown := api.Post("/auth/login", map[string]any{"email": "who@example.com", "password": "nope-nope"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, decode[problemBody](t, wrong.Body.Bytes()).Detail, decode[problemBody](t, unknown.Body.Bytes()).Detail)
}

func TestHandler_ForgotPasswordResponsesAreIdentical(t *testing.T) {
	api, _ := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.Post("/auth/register", registerBody("ada@example.com")).Code)

	known := api.Post("/auth/password/forgot", map[string]any{"email": "ada@example.com"})
	unknown := api.Post("/auth/password/forgot", map[string]any{"email": "nobody@example.com"})

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, known.Body.Bytes(), unknown.Body.Bytes())
	assert.Contains(t, known.Body.String(), PasswordResetMessage)
}

func TestHandler_ProfileRequiresAccessToken(t *testing.T) {
	api, env := newTestAPI(t)
	ctx := context.Background()

	resp := api.Get("/auth/profile")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "ErrUnauthorized", decode[problemBody](t, resp.Body.Bytes()).Code)

	res := env.register(t, "ada@example.com", "s3cret-pass")
	env.enable2FA(t, res, testPhone)
	login, err := env.svc.Login(ctx, "ada@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.True(t, login.Requires2FA)

	resp = api.Get("/auth/profile", "Authorization: Bearer "+login.TempToken)
	assert.Equal(t, http.StatusUnauthorized, resp.Code, "pending 2fa token")

	resp = api.Get("/auth/profile", "Authorization: Bearer "+res.Tokens.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, resp.Code, "refresh token")

	resp = api.Get("/auth/profile", "Authorization: Token "+res.Tokens.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, resp.Code, "wrong scheme")
}

func TestHandler_TwoFactorFlow(t *testing.T) {
	api, env := newTestAPI(t)
	res := env.register(t, "ada@example.com", "s3cret-pass")
	auth := "Authorization: Bearer " + res.Tokens.AccessToken

	resp := api.Post("/auth/2fa/enable", auth, map[string]any{"phoneNumber": testPhone})
	assert.Equal(t, http.StatusForbidden, resp.Code, "email not verified")

	resp = api.Post("/auth/verify-email", map[string]any{"token": env.mailer.verifyToken("ada@example.com")})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = api.Post("/auth/2fa/enable", auth, map[string]any{"phoneNumber": testPhone})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "Verification code sent to your phone")

	resp = api.Post("/auth/2fa/verify-phone", auth, map[string]any{"code": env.sms.lastCode(testPhone)})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "2FA enabled successfully")

	resp = api.Post("/auth/login", map[string]any{"email": "ada@example.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, resp.Code)
	login := decode[map[string]any](t, resp.Body.Bytes())
	assert.Equal(t, true, login["requires2FA"])
	assert.NotContains(t, login, "accessToken")
	temp, _ := login["tempToken"].(string)
	require.NotEmpty(t, temp)

	resp = api.Post("/auth/2fa/verify", map[string]any{"tempToken": temp, "code": env.sms.lastCode(testPhone)})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	session := decode[AuthBody](t, resp.Body.Bytes())
	assert.NotEmpty(t, session.AccessToken)

	resp = api.Post("/auth/2fa/disable", "Authorization: Bearer "+session.AccessToken, map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "2FA disabled successfully")
}

func TestHandler_RefreshAndLogout(t *testing.T) {
	api, env := newTestAPI(t)
	res := env.register(t, "ada@example.com", "s3cret-pass")

	resp := api.Post("/auth/refresh-token", map[string]any{"refreshToken": res.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	rotated := decode[AuthBody](t, resp.Body.Bytes())

	resp = api.Post("/auth/refresh-token", map[string]any{"refreshToken": res.Tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Post("/auth/logout", map[string]any{"refreshToken": rotated.RefreshToken})
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = api.Post("/auth/refresh-token", map[string]any{"refreshToken": rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestHandler_RoleGates(t *testing.T) {
	api, env := newTestAPI(t)
	ctx := context.Background()

	student := env.register(t, "student@example.com", "s3cret-pass")
	_, err := env.svc.CreateUser(ctx, CreateUserInput{
		RegisterInput: RegisterInput{FirstName: "Root", LastName: "Admin", Email: "admin@example.com", Password: "s3cret-pass"},
		Role:          RoleAdmin,
	})
	require.NoError(t, err)
	admin, err := env.svc.Login(ctx, "admin@example.com", "s3cret-pass")
	require.NoError(t, err)

	studentAuth := "Authorization: Bearer " + student.Tokens.AccessToken
	adminAuth := "Authorization: Bearer " + admin.Tokens.AccessToken

	assert.Equal(t, http.StatusForbidden, api.Get("/auth/admin", studentAuth).Code)
	assert.Equal(t, http.StatusForbidden, api.Get("/users", studentAuth).Code)
	assert.Equal(t, http.StatusUnauthorized, api.Get("/users").Code)
	assert.Equal(t, http.StatusOK, api.Get("/auth/admin", adminAuth).Code)
	assert.Equal(t, http.StatusForbidden, api.Get("/auth/instructor", adminAuth).Code)

	resp := api.Post("/users", adminAuth, map[string]any{
		"firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com",
		"password": "s3cret-pass", "role": "instructor",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decode[UserDTO](t, resp.Body.Bytes())
	assert.Equal(t, RoleInstructor, created.Role)

	resp = api.Get("/users?role=instructor", adminAuth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	list := decode[struct {
		Users []UserDTO `json:"users"`
	}](t, resp.Body.Bytes())
	require.Len(t, list.Users, 1)
	assert.Equal(t, created.ID, list.Users[0].ID)

	assert.Equal(t, http.StatusOK, api.Get("/users/"+created.ID, adminAuth).Code)
	assert.Equal(t, http.StatusNoContent, api.Delete("/users/"+created.ID, adminAuth).Code)
	assert.Equal(t, http.StatusNotFound, api.Get("/users/"+created.ID, adminAuth).Code)
}
