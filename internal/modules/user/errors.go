package user

import (
	"fmt"
	"net/http"
)

// DomainError is a user-module error that knows how it should be rendered as an
// RFC 7807 problem. httpx.ToProblem reads it through the DomainProblem accessors.
type DomainError struct {
	Code       string // stable machine-readable code, e.g. "ErrInvalidToken"
	HTTPStatus int
	Title      string

	// Message is the default public detail; Detail overrides it per occurrence.
	Message string
	Detail  string

	TypeURI string
	Context any

	cause error
}

func (e *DomainError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Message
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches on Code so copies made by WithCause still match their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a new instance of the DomainError, wrapping the provided cause.
func (e *DomainError) WithCause(err error) *DomainError {
	if err == nil {
		return e
	}
	cp := *e
	cp.cause = err
	return &cp
}

// WithDetail sets a public-friendly detail message for clients.
func (e *DomainError) WithDetail(detail string) *DomainError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// --- RFC7807 mapping accessors (satisfy httpx.DomainProblem) ---

func (e *DomainError) ProblemCode() string { return e.Code }

func (e *DomainError) ProblemStatus() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

func (e *DomainError) ProblemTitle() string { return e.Title }

func (e *DomainError) ProblemDetail() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}

func (e *DomainError) ProblemTypeURI() string { return e.TypeURI }
func (e *DomainError) ProblemContext() any    { return e.Context }

// --- Pre-defined Domain Errors ---

var (
	// Resource & identity
	ErrNotFound = &DomainError{
		Code:       "ErrNotFound",
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "user not found",
		TypeURI:    "urn:problem:user/err-not-found",
	}

	ErrUnauthorized = &DomainError{
		Code:       "ErrUnauthorized",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "authentication required",
		TypeURI:    "urn:problem:user/err-unauthorized",
	}

	ErrForbidden = &DomainError{
		Code:       "ErrForbidden",
		HTTPStatus: http.StatusForbidden,
		Title:      "Forbidden",
		Message:    "you do not have permission to perform this action",
		TypeURI:    "urn:problem:user/err-forbidden",
	}

	// Auth & credentials. Every login, refresh and code failure shares this one
	// message so callers cannot tell which check failed.
	ErrInvalidCredentials = &DomainError{
		Code:       "ErrInvalidCredentials",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "invalid credentials",
		TypeURI:    "urn:problem:user/err-invalid-credentials",
	}

	ErrEmailNotVerified = &DomainError{
		Code:       "ErrEmailNotVerified",
		HTTPStatus: http.StatusForbidden,
		Title:      "Forbidden",
		Message:    "please verify your email before enabling 2FA",
		TypeURI:    "urn:problem:user/err-email-not-verified",
	}

	// Emailed tokens (verification link, password reset link)
	ErrInvalidToken = &DomainError{
		Code:       "ErrInvalidToken",
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "invalid or expired token",
		TypeURI:    "urn:problem:user/err-invalid-token",
	}

	ErrResendTooSoon = &DomainError{
		Code:       "ErrResendTooSoon",
		HTTPStatus: http.StatusTooManyRequests,
		Title:      "Too Many Requests",
		Message:    "please wait before requesting another code",
		TypeURI:    "urn:problem:user/err-resend-too-soon",
	}

	// Registration
	ErrEmailExists = &DomainError{
		Code:       "ErrEmailExists",
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "a user with this email already exists",
		TypeURI:    "urn:problem:user/err-email-exists",
	}

	// OAuth
	ErrUnsupportedOAuthProvider = &DomainError{
		Code:       "ErrUnsupportedOAuthProvider",
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "unsupported oauth provider",
		TypeURI:    "urn:problem:user/err-unsupported-oauth-provider",
	}

	ErrOAuthStateInvalid = &DomainError{
		Code:       "ErrOAuthStateInvalid",
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "invalid or expired oauth state",
		TypeURI:    "urn:problem:user/err-oauth-state-invalid",
	}

	ErrOAuthExchangeFailed = &DomainError{
		Code:       "ErrOAuthExchangeFailed",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "oauth authentication failed",
		TypeURI:    "urn:problem:user/err-oauth-exchange-failed",
	}

	ErrOAuthEmailMissing = &DomainError{
		Code:       "ErrOAuthEmailMissing",
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "email not provided by oauth provider",
		TypeURI:    "urn:problem:user/err-oauth-email-missing",
	}

	// Generic internal
	ErrInternal = &DomainError{
		Code:       "ErrInternal",
		HTTPStatus: http.StatusInternalServerError,
		Title:      "Internal Server Error",
		Message:    "internal server error",
		TypeURI:    "urn:problem:user/err-internal",
	}
)
