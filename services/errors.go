package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeUnauthenticated    ErrorType = "unauthenticated"
	ErrorTypeForbidden          ErrorType = "forbidden"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeAlreadyRevoked     ErrorType = "already_revoked"
	ErrorTypeProviderNotAllowed ErrorType = "provider_not_allowed"
	ErrorTypeInternal           ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Authentication errors. Resolvers fail closed: any ambiguous condition
	// during credential resolution surfaces as one of these, never as a
	// silent pass-through.
	ErrUnauthenticated = NewDomainError(ErrorTypeUnauthenticated, "authentication required", nil)
	ErrInvalidToken    = NewDomainError(ErrorTypeUnauthenticated, "invalid or expired session token", nil)
	ErrStaleSession    = NewDomainError(ErrorTypeUnauthenticated, "session has been revoked", nil)
	ErrInvalidAPIKey   = NewDomainError(ErrorTypeUnauthenticated, "invalid API key", nil)

	// Permission errors
	ErrForbidden              = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrInsufficientRole       = NewDomainError(ErrorTypeForbidden, "insufficient role", nil)
	ErrOrgScopeMismatch       = NewDomainError(ErrorTypeForbidden, "API key is not scoped to this organization", nil)
	ErrNotKeyOwner            = NewDomainError(ErrorTypeForbidden, "API key belongs to another user", nil)
	ErrAPIKeyRevokedOrExpired = NewDomainError(ErrorTypeForbidden, "API key is revoked or expired", nil)
	ErrCSRFValidationFailed   = NewDomainError(ErrorTypeForbidden, "CSRF validation failed", nil)

	// Not found errors
	ErrUserNotFound         = NewDomainError(ErrorTypeNotFound, "user not found", nil)
	ErrOrganizationNotFound = NewDomainError(ErrorTypeNotFound, "organization not found", nil)
	ErrAPIKeyNotFound       = NewDomainError(ErrorTypeNotFound, "API key not found", nil)
	ErrMembershipNotFound   = NewDomainError(ErrorTypeNotFound, "membership not found", nil)

	// Validation errors
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidSlug  = NewDomainError(ErrorTypeValidation, "invalid slug format", nil)

	// Idempotency violation: revoking an already revoked key is rejected,
	// distinct from success.
	ErrAlreadyRevoked = NewDomainError(ErrorTypeAlreadyRevoked, "API key is already revoked", nil)

	// Policy rejection: the requested provider is not on the allow-list or
	// its deployment variant is disabled. Distinct from not found.
	ErrProviderNotAllowed      = NewDomainError(ErrorTypeProviderNotAllowed, "integration provider is not allowed", nil)
	ErrProviderNotConfigured   = NewDomainError(ErrorTypeProviderNotAllowed, "integration provider is not configured", nil)
	ErrProviderVariantDisabled = NewDomainError(ErrorTypeProviderNotAllowed, "integration provider variant is disabled", nil)

	// Internal errors
	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)
	ErrAuditFailed   = NewDomainError(ErrorTypeInternal, "audit log write failed", nil)
)

// Error type checking helper functions

// IsUnauthenticatedError checks if an error is an unauthenticated error
func IsUnauthenticatedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthenticated
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsAlreadyRevokedError checks if an error is an already-revoked error
func IsAlreadyRevokedError(err error) bool {
	return GetErrorType(err) == ErrorTypeAlreadyRevoked
}

// IsProviderNotAllowedError checks if an error is a provider policy rejection
func IsProviderNotAllowedError(err error) bool {
	return GetErrorType(err) == ErrorTypeProviderNotAllowed
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
