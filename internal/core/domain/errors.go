package domain

import (
	"errors"
	"fmt"
)

// Sentinels. Typed errors below unwrap to one of these so callers can use errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("already exists")
	ErrInvalidRole  = errors.New("invalid role")
	ErrDuplicateKey = errors.New("duplicate key")

	ErrAccountNotFound = errors.New("account not found")
	ErrRoleNotFound    = errors.New("role not found")

	ErrTokenNotFound = errors.New("invalid or expired token")
	ErrTokenUsed     = errors.New("token has already been used")
	ErrTokenExpired  = errors.New("token has expired")

	// ErrAuthentication never says which half of the credentials was wrong.
	ErrAuthentication  = errors.New("invalid username/email or password")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrAuthorization   = errors.New("access forbidden")

	ErrDelivery     = errors.New("password reset delivery failed")
	ErrProvisioning = errors.New("failed to create or find role")
)

// ValidationError reports malformed input on a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports a taken unique key: "username" or "email".
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	switch e.Field {
	case "username":
		return "username is already taken"
	case "email":
		return "email is already in use"
	}
	return fmt.Sprintf("%s already exists", e.Field)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InvalidRoleError carries the rejected role string.
type InvalidRoleError struct {
	Role string
}

func (e *InvalidRoleError) Error() string { return "invalid role: " + e.Role }

func (e *InvalidRoleError) Unwrap() error { return ErrInvalidRole }

// DuplicateKeyError is returned by storage when a unique constraint rejects a
// write. Field names the violated key when storage can tell, else it is empty.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return "duplicate key"
	}
	return "duplicate key on " + e.Field
}

func (e *DuplicateKeyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDuplicateKey}
	}
	return []error{ErrDuplicateKey, e.Err}
}

// AsDuplicateKey extracts a DuplicateKeyError from err's chain.
func AsDuplicateKey(err error) (*DuplicateKeyError, bool) {
	var dk *DuplicateKeyError
	if errors.As(err, &dk) {
		return dk, true
	}
	return nil, false
}
