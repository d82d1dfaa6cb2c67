package httpx

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDomainError struct {
	code   string
	status int
}

func (e *stubDomainError) Error() string          { return e.code }
func (e *stubDomainError) ProblemCode() string    { return e.code }
func (e *stubDomainError) ProblemStatus() int     { return e.status }
func (e *stubDomainError) ProblemTitle() string   { return "" }
func (e *stubDomainError) ProblemDetail() string  { return "" }
func (e *stubDomainError) ProblemTypeURI() string { return "" }
func (e *stubDomainError) ProblemContext() any    { return nil }

func TestToKebab(t *testing.T) {
	cases := map[string]string{
		"ErrInvalidResetToken": "err-invalid-reset-token",
		"USER_NOT_FOUND":       "user-not-found",
		"ErrEmailExists":       "err-email-exists",
		"":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, toKebab(in), in)
	}
}

func TestToProblem(t *testing.T) {
	ctx := context.Background()

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ToProblem(ctx, nil))
	})

	t.Run("domain error", func(t *testing.T) {
		wrapped := errors.Join(errors.New("outer"), &stubDomainError{code: "ErrInvalidToken", status: http.StatusBadRequest})
		var p *Problem
		require.ErrorAs(t, ToProblem(ctx, wrapped), &p)
		assert.Equal(t, http.StatusBadRequest, p.GetStatus())
		assert.Equal(t, "urn:problem:err-invalid-token", p.Type)
		assert.Equal(t, "Bad Request", p.Title)
		assert.Equal(t, "Bad request", p.Detail)
		assert.Equal(t, "ErrInvalidToken", p.Code)
	})

	t.Run("problem passes through", func(t *testing.T) {
		in := StatusProblem(ctx, http.StatusUnauthorized, "ErrUnauthorized", "")
		assert.Same(t, in, ToProblem(ctx, in))
		assert.Equal(t, "urn:problem:auth/err-unauthorized", in.Type)
		assert.Equal(t, "Unauthorized", in.Detail)
	})

	t.Run("unknown error hides detail", func(t *testing.T) {
		var p *Problem
		require.ErrorAs(t, ToProblem(ctx, errors.New("pq: connection refused")), &p)
		assert.Equal(t, http.StatusInternalServerError, p.GetStatus())
		assert.Equal(t, "ErrInternal", p.Code)
		assert.NotContains(t, p.Detail, "connection refused")
	})
}

func TestProblemContentType(t *testing.T) {
	p := &Problem{}
	assert.Equal(t, "application/problem+json", p.ContentType("application/json"))
	assert.Equal(t, "application/problem+cbor", p.ContentType("application/cbor"))
	assert.Equal(t, "text/plain", p.ContentType("text/plain"))
}
