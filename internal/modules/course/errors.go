package course

import (
	"fmt"
	"net/http"
)

// DomainError is a course-module error that httpx renders as a problem document.
type DomainError struct {
	Code       string
	HTTPStatus int
	Title      string
	Detail     string
	TypeURI    string
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is matches on Code so wrapped copies still compare equal to their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

func (e *DomainError) WithCause(err error) *DomainError {
	c := *e
	c.Err = err
	return &c
}

func (e *DomainError) ProblemCode() string    { return e.Code }
func (e *DomainError) ProblemStatus() int     { return e.HTTPStatus }
func (e *DomainError) ProblemTitle() string   { return e.Title }
func (e *DomainError) ProblemDetail() string  { return e.Detail }
func (e *DomainError) ProblemTypeURI() string { return e.TypeURI }
func (e *DomainError) ProblemContext() any    { return nil }

var (
	ErrNotFound = &DomainError{
		Code:       "ErrNotFound",
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Detail:     "The requested course was not found.",
		TypeURI:    "urn:problem:course/not-found",
	}
	ErrForbidden = &DomainError{
		Code:       "ErrForbidden",
		HTTPStatus: http.StatusForbidden,
		Title:      "Forbidden",
		Detail:     "Only the course instructor or an administrator can do this.",
		TypeURI:    "urn:problem:course/forbidden",
	}
	ErrLessonPositionTaken = &DomainError{
		Code:       "ErrLessonPositionTaken",
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Detail:     "Another lesson already uses this position.",
		TypeURI:    "urn:problem:course/lesson-position-taken",
	}
	ErrInternal = &DomainError{
		Code:       "ErrInternal",
		HTTPStatus: http.StatusInternalServerError,
		Title:      "Internal Server Error",
		Detail:     "An unexpected error occurred. Please try again later.",
		TypeURI:    "urn:problem:course/internal",
	}
)
