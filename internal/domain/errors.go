package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Generation and media errors.
var (
	// ErrRateLimited marks a provider failure caused by quota, rate limiting
	// or provider-side overload. Backends wrap it so the waterfall can pick
	// the escalating cooldown instead of the short transient one.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmptyResponse is returned by backends that answered without text.
	ErrEmptyResponse = errors.New("empty response")

	// ErrBackendsExhausted means every primary backend failed or was cooling down.
	ErrBackendsExhausted = errors.New("all backends exhausted")

	// ErrMediaTooLarge is returned when a download exceeds its byte ceiling.
	ErrMediaTooLarge = errors.New("media too large")

	// ErrUnsupportedMedia is returned for payloads that cannot be decoded.
	ErrUnsupportedMedia = errors.New("unsupported media")
)

// FailureClass decides how a backend failure affects its circuit breaker.
type FailureClass int

const (
	// FailureTransient covers transport errors, timeouts and malformed replies.
	FailureTransient FailureClass = iota
	// FailureQuota covers rate limits, exhausted quota and provider overload.
	FailureQuota
)

func (c FailureClass) String() string {
	if c == FailureQuota {
		return "quota"
	}
	return "transient"
}

// ClassifyFailure maps a backend error to its failure class.
func ClassifyFailure(err error) FailureClass {
	if errors.Is(err, ErrRateLimited) {
		return FailureQuota
	}
	return FailureTransient
}
