package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/delordemm1/lms-api/internal/contextx"
	"github.com/delordemm1/lms-api/internal/httpx"
	"github.com/delordemm1/lms-api/internal/session"
)

// Authenticate is a router-agnostic Huma middleware that accepts only access
// tokens and injects the caller's ID and role into the request context.
// Refresh and pending-2FA tokens are rejected. Failures are written as
// problem+json with code ErrUnauthorized.
func Authenticate(minter session.Minter, logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		authHeader := ctx.Header("Authorization")
		if authHeader == "" {
			writeProblem(ctx, http.StatusUnauthorized, "ErrUnauthorized", "missing authorization header")
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			writeProblem(ctx, http.StatusUnauthorized, "ErrUnauthorized", "invalid authorization header format")
			return
		}

		claims, err := minter.ParseAccess(ctx.Context(), tokenString)
		if err != nil {
			logger.Warn("rejected bearer token", "path", ctx.URL().Path)
			writeProblem(ctx, http.StatusUnauthorized, "ErrUnauthorized", "invalid or expired token")
			return
		}

		ctx = huma.WithValue(ctx, contextx.UserIDKey, claims.Subject)
		ctx = huma.WithValue(ctx, contextx.RoleKey, claims.Role)
		next(ctx)
	}
}

// RequireRole lets the request through only when Authenticate stored one of roles.
func RequireRole(roles ...string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if _, ok := contextx.UserID(ctx.Context()); !ok {
			writeProblem(ctx, http.StatusUnauthorized, "ErrUnauthorized", "authentication required")
			return
		}
		if !slices.Contains(roles, contextx.Role(ctx.Context())) {
			writeProblem(ctx, http.StatusForbidden, "ErrForbidden", "you do not have permission to access this resource")
			return
		}
		next(ctx)
	}
}

func writeProblem(ctx huma.Context, status int, code, detail string) {
	p := httpx.StatusProblem(ctx.Context(), status, code, detail)
	ctx.SetHeader("Content-Type", "application/problem+json")
	ctx.SetStatus(status)
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(p)
}
