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

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrUnavailable marks missing configuration, e.g. no provider credential.
	ErrUnavailable = errors.New("service unavailable")

	// ErrUpstream marks a failed call to an external service.
	ErrUpstream = errors.New("upstream failure")
)

// ConflictError represents a resource conflict, such as a generation already
// running for a study.
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (folder, study)
	ResourceID   string // ID of the conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ForbiddenError indicates an operation on a protected resource.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func (e *ForbiddenError) StatusCode() int {
	return http.StatusForbidden
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// UnavailableError indicates a required collaborator is not configured.
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string {
	return e.Message
}

func (e *UnavailableError) StatusCode() int {
	return http.StatusServiceUnavailable
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// UpstreamError wraps a failure reported by an external service.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return e.Service + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) StatusCode() int {
	return http.StatusBadGateway
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
