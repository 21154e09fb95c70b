// Package errors defines the error taxonomy for cluster credential verification.
package errors

import (
	stderrors "errors"
	"fmt"
)

// DomainError represents errors in the domain logic
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so wrapped errors
// compare equal to their sentinel base.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// Verification errors
var (
	// ErrUnreachable covers DNS and connect failures, missing resources and remote
	// internal errors. Callers may retry.
	ErrUnreachable = &DomainError{
		Code:    "UNREACHABLE",
		Message: "endpoint could not be reached",
	}

	// ErrInvalidCredentials means the endpoint was reached and rejected the secret.
	ErrInvalidCredentials = &DomainError{
		Code:    "INVALID_CREDENTIALS",
		Message: "credentials were rejected by the endpoint",
	}

	ErrUnsupportedRole = &DomainError{
		Code:    "UNSUPPORTED_ROLE",
		Message: "no verification routine for endpoint role",
	}

	ErrCapabilityMissing = &DomainError{
		Code:    "CAPABILITY_MISSING",
		Message: "remote system does not support the required capability",
	}
)

// Configuration errors
var (
	ErrMissingBearer = &DomainError{
		Code:    "MISSING_BEARER",
		Message: "a bearer authentication is required to replicate secrets",
	}

	ErrMissingEndpoint = &DomainError{
		Code:    "MISSING_ENDPOINT",
		Message: "endpoint is not configured",
	}

	ErrMissingConfiguration = &DomainError{
		Code:    "MISSING_CONFIGURATION",
		Message: "required configuration is missing",
	}

	// ErrInvalidCertificateAuthority means the configured CA cannot be used.
	// Retrying does not help.
	ErrInvalidCertificateAuthority = &DomainError{
		Code:    "INVALID_CERTIFICATE_AUTHORITY",
		Message: "certificate authority is not valid PEM",
	}
)

// Policy gate errors
var (
	ErrContinuationNotFound = &DomainError{
		Code:    "CONTINUATION_NOT_FOUND",
		Message: "no pending continuation for callback",
	}

	ErrUnknownSelector = &DomainError{
		Code:    "UNKNOWN_SELECTOR",
		Message: "no handler registered for continuation selector",
	}

	ErrInvalidTarget = &DomainError{
		Code:    "INVALID_TARGET",
		Message: "target is not valid for this action",
	}
)

// NewDomainError creates a new domain error with context
func NewDomainError(base *DomainError, err error) error {
	return &DomainError{
		Code:    base.Code,
		Message: base.Message,
		Err:     err,
	}
}

// IsRetryable reports whether err is a connectivity failure worth retrying.
// Credential rejections and policy errors are not.
func IsRetryable(err error) bool {
	return stderrors.Is(err, ErrUnreachable)
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}
