package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the service layer. Controllers map these to
// response codes.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidLogin      = errors.New("incorrect email or password")
	ErrBabyNotFound      = errors.New("baby not found")
	ErrAccessDenied      = errors.New("no access to this baby")
	ErrPermissionDenied  = errors.New("missing required permission")
	ErrCaregiverNotFound = errors.New("caregiver not found")
	ErrCaregiverExists   = errors.New("caregiver already added")
	ErrSessionNotFound   = errors.New("monitoring session not found")
	ErrSessionNotActive  = errors.New("monitoring session is not active")
	ErrDetectionNotFound = errors.New("detection not found")
	ErrAlertNotFound     = errors.New("alert not found")
	ErrEscalationLimit   = errors.New("escalation level limit reached")
	ErrDetectionClosed   = errors.New("detection already resolved")
)

// AlreadyActiveError reports a start-session conflict and carries the ID
// of the session that is already running
type AlreadyActiveError struct {
	ExistingSessionID uint
}

func (e *AlreadyActiveError) Error() string {
	return fmt.Sprintf("an active monitoring session already exists (session %d)", e.ExistingSessionID)
}

// ValidationError wraps a field-level validation failure
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with a formatted message
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
