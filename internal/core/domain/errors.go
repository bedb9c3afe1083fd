package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidation indicates a file was rejected before any network call.
	ErrValidation = errors.New("validation failed")

	// ErrIntegrity indicates the client and server checksums disagree.
	// The evidence record is never created.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrTimeout indicates a network call exceeded its budget.
	// Retrying is a caller decision.
	ErrTimeout = errors.New("timed out")

	// ErrBackendUnavailable indicates the grounded search backend is unhealthy.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrStatusUnconfirmed indicates ingestion could not be confirmed within
	// the polling budget. It is a soft warning, not a failure.
	ErrStatusUnconfirmed = errors.New("ingestion status unconfirmed")

	// Upload Session Errors.

	// ErrInvalidTransition indicates an upload state change not in the transition table.
	ErrInvalidTransition = errors.New("invalid upload state transition")

	// ErrNoFileSelected indicates StartUpload was called before a file was accepted.
	ErrNoFileSelected = errors.New("no file selected")

	// ErrSessionTerminal indicates the session already completed or failed and must be reset.
	ErrSessionTerminal = errors.New("upload session is terminal")
)

// ValidationError describes a locally detected, user-correctable rejection.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error { return ErrValidation }

// IntegrityError reports a checksum mismatch between client and server.
type IntegrityError struct {
	Expected string // locally computed digest
	Actual   string // digest reported by the backend
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed: client %s, server %s", e.Expected, e.Actual)
}

// Unwrap allows errors.Is(err, ErrIntegrity).
func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// TimeoutError reports a network call that exceeded its budget.
type TimeoutError struct {
	Op     string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Budget > 0 {
		return fmt.Sprintf("%s: timed out after %s", e.Op, e.Budget)
	}
	return fmt.Sprintf("%s: timed out", e.Op)
}

// Unwrap allows errors.Is(err, ErrTimeout).
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// BackendUnavailableError reports an unhealthy optional backend.
type BackendUnavailableError struct {
	Backend string
	Cause   error
}

func (e *BackendUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Backend, e.Cause)
	}
	return e.Backend + " unavailable"
}

// Is matches ErrBackendUnavailable.
func (e *BackendUnavailableError) Is(target error) bool { return target == ErrBackendUnavailable }

// Unwrap exposes the underlying cause.
func (e *BackendUnavailableError) Unwrap() error { return e.Cause }

// StatusUnconfirmedError reports an exhausted ingestion polling budget.
type StatusUnconfirmedError struct {
	DocumentID string
	Attempts   int
}

func (e *StatusUnconfirmedError) Error() string {
	return fmt.Sprintf("ingestion of %s not confirmed after %d attempts", e.DocumentID, e.Attempts)
}

// Unwrap allows errors.Is(err, ErrStatusUnconfirmed).
func (e *StatusUnconfirmedError) Unwrap() error { return ErrStatusUnconfirmed }

// APIError is a non-2xx response from the application backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Is maps 404 responses onto ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// IsRetryable reports whether the caller may reasonably retry the operation.
// Validation and integrity failures are never retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrIntegrity) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrBackendUnavailable)
}
