package code

// HTTP status codes.
const (
	// StatusOK - 200: success.
	StatusOK = 200
	// StatusBadRequest - 400: invalid request parameters.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: unauthorized.
	StatusUnauthorized = 401
	// StatusForbidden - 403: access forbidden.
	StatusForbidden = 403
	// StatusNotFound - 404: resource not found.
	StatusNotFound = 404
	// StatusConflict - 409: resource conflict.
	StatusConflict = 409
	// StatusTooManyRequests - 429: too many requests.
	StatusTooManyRequests = 429
	// StatusInternalServerError - 500: internal server error.
	StatusInternalServerError = 500
)

// Common error codes (100xxx).
const (
	// ErrSuccess - 200: success.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: unknown error.
	ErrUnknown
	// ErrBind - 400: request parameter binding error.
	ErrBind
	// ErrValidation - 400: request parameter validation error.
	ErrValidation
	// ErrTokenInvalid - 401: invalid token.
	ErrTokenInvalid
	// ErrTooManyRequests - 429: request rate too high.
	ErrTooManyRequests
)

// User error codes (101xxx).
const (
	// ErrUserNotFound - 404: user not found.
	ErrUserNotFound int = iota + 101000
	// ErrUserAlreadyExist - 400: user already exists.
	ErrUserAlreadyExist
	// ErrUserPasswordIncorrect - 401: incorrect password.
	ErrUserPasswordIncorrect
)

// Baby error codes (102xxx).
const (
	// ErrBabyNotFound - 404: baby not found.
	ErrBabyNotFound int = iota + 102000
	// ErrAccessDenied - 403: no access to this baby.
	ErrAccessDenied
	// ErrPermissionDenied - 403: missing required permission.
	ErrPermissionDenied
	// ErrCaregiverNotFound - 404: caregiver not found.
	ErrCaregiverNotFound
	// ErrCaregiverAlreadyExist - 400: caregiver already added.
	ErrCaregiverAlreadyExist
)

// Monitoring session error codes (103xxx).
const (
	// ErrSessionNotFound - 404: monitoring session not found.
	ErrSessionNotFound int = iota + 103000
	// ErrSessionAlreadyActive - 409: an active session already exists for this baby.
	ErrSessionAlreadyActive
	// ErrSessionNotActive - 400: session is not active.
	ErrSessionNotActive
)

// Detection error codes (104xxx).
const (
	// ErrDetectionNotFound - 404: detection not found.
	ErrDetectionNotFound int = iota + 104000
	// ErrAlertNotFound - 404: alert not found.
	ErrAlertNotFound
	// ErrDetectionResolved - 400: detection already resolved.
	ErrDetectionResolved
	// ErrEscalationLimit - 400: escalation level limit reached.
	ErrEscalationLimit
)

// Database error codes (105xxx).
const (
	// ErrDatabase - 500: database error.
	ErrDatabase int = iota + 105000
	// ErrRecordNotFound - 404: record not found.
	ErrRecordNotFound
)

// Streaming error codes (106xxx).
const (
	// ErrStreamUnavailable - 500: live stream service unavailable.
	ErrStreamUnavailable int = iota + 106000
)
