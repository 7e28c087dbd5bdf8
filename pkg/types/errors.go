package types

import "fmt"

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeInternal       ErrorType = "internal"
)

// AppError represents a structured error raised by the booking core
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same error code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of the error carrying the given details.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeAuthentication,
		Code:    code,
		Message: message,
	}
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeAuthorization,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error codes
const (
	ErrCodeMissingFields      = "MISSING_FIELDS"
	ErrCodeDoctorNotFound     = "DOCTOR_NOT_FOUND"
	ErrCodeSlotNotFound       = "SLOT_NOT_FOUND"
	ErrCodeSlotUnavailable    = "SLOT_UNAVAILABLE"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeAlreadyCancelled   = "ALREADY_CANCELLED"
	ErrCodePatientNotFound    = "PATIENT_NOT_FOUND"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Booking core error taxonomy. Compare with errors.Is.
var (
	ErrMissingFields       = NewValidationError(ErrCodeMissingFields, "Missing required fields", nil)
	ErrDoctorNotFound      = NewNotFoundError(ErrCodeDoctorNotFound, "Doctor not found")
	ErrSlotNotFound        = NewNotFoundError(ErrCodeSlotNotFound, "Time slot not found")
	ErrSlotUnavailable     = NewConflictError(ErrCodeSlotUnavailable, "Time slot is no longer available")
	ErrDuplicateEmail      = NewConflictError(ErrCodeDuplicateEmail, "User already exists")
	ErrAppointmentNotFound = NewNotFoundError(ErrCodeNotFound, "Appointment not found")
	ErrAlreadyCancelled    = NewConflictError(ErrCodeAlreadyCancelled, "Appointment is already cancelled")
	ErrPatientNotFound     = NewNotFoundError(ErrCodePatientNotFound, "User not found")
	ErrInvalidCredentials  = NewAuthenticationError(ErrCodeInvalidCredentials, "Invalid email or password")
	ErrUnauthorized        = NewAuthenticationError(ErrCodeUnauthorized, "Authentication required")
	ErrForbidden           = NewAuthorizationError(ErrCodeForbidden, "You can only manage your own appointments")
)
