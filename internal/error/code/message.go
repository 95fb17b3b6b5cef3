package code

// Error code to message mapping
var codeMessageMap = map[int]string{
	// Common error codes
	ErrSuccess:         "success",
	ErrUnknown:         "unknown error",
	ErrBind:            "request parameter binding error",
	ErrValidation:      "request parameter validation error",
	ErrTokenInvalid:    "invalid authentication token",
	ErrTooManyRequests: "too many requests",

	// User error codes
	ErrUserNotFound:          "user not found",
	ErrUserAlreadyExist:      "user already exists",
	ErrUserPasswordIncorrect: "incorrect password",

	// Baby error codes
	ErrBabyNotFound:          "baby not found",
	ErrAccessDenied:          "no access to this baby",
	ErrPermissionDenied:      "missing required permission",
	ErrCaregiverNotFound:     "caregiver not found",
	ErrCaregiverAlreadyExist: "caregiver already added",

	// Monitoring session error codes
	ErrSessionNotFound:      "monitoring session not found",
	ErrSessionAlreadyActive: "an active monitoring session already exists for this baby",
	ErrSessionNotActive:     "monitoring session is not active",

	// Detection error codes
	ErrDetectionNotFound: "detection not found",
	ErrAlertNotFound:     "alert not found",
	ErrDetectionResolved: "detection already resolved",
	ErrEscalationLimit:   "escalation level limit reached",

	// Database error codes
	ErrDatabase:       "database error",
	ErrRecordNotFound: "record not found",

	// Streaming error codes
	ErrStreamUnavailable: "live stream service unavailable",
}

// Error code to HTTP status mapping
var codeStatusMap = map[int]int{
	// Common error codes
	ErrSuccess:         StatusOK,
	ErrUnknown:         StatusInternalServerError,
	ErrBind:            StatusBadRequest,
	ErrValidation:      StatusBadRequest,
	ErrTokenInvalid:    StatusUnauthorized,
	ErrTooManyRequests: StatusTooManyRequests,

	// User error codes
	ErrUserNotFound:          StatusNotFound,
	ErrUserAlreadyExist:      StatusBadRequest,
	ErrUserPasswordIncorrect: StatusUnauthorized,

	// Baby error codes
	ErrBabyNotFound:          StatusNotFound,
	ErrAccessDenied:          StatusForbidden,
	ErrPermissionDenied:      StatusForbidden,
	ErrCaregiverNotFound:     StatusNotFound,
	ErrCaregiverAlreadyExist: StatusBadRequest,

	// Monitoring session error codes
	ErrSessionNotFound:      StatusNotFound,
	ErrSessionAlreadyActive: StatusConflict,
	ErrSessionNotActive:     StatusBadRequest,

	// Detection error codes
	ErrDetectionNotFound: StatusNotFound,
	ErrAlertNotFound:     StatusNotFound,
	ErrDetectionResolved: StatusBadRequest,
	ErrEscalationLimit:   StatusBadRequest,

	// Database error codes
	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,

	// Streaming error codes
	ErrStreamUnavailable: StatusInternalServerError,
}

// GetMessage returns the message for an error code
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return "unknown error"
}

// GetStatus returns the HTTP status for an error code
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}
