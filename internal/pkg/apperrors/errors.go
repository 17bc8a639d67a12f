package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")

	// Authentication errors
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTokenNotFound   = errors.New("token not found")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")

	// External collaborators
	ErrPaymentGateway = errors.New("payment gateway error")
)

// Entity errors. Each one unwraps to its taxonomy sentinel so callers can
// match either the specific or the general error.
var (
	ErrUserNotFound        = NewResourceNotFoundError("user not found")
	ErrScholarshipNotFound = NewResourceNotFoundError("scholarship not found")
	ErrReviewNotFound      = NewResourceNotFoundError("review not found")
	ErrApplicationNotFound = NewResourceNotFoundError("application not found")

	ErrAlreadyApplied  = NewConflictError("Already applied")
	ErrAlreadyPaid     = NewConflictError("application is already paid")
	ErrInvalidRole     = NewValidationError("role must be one of Student, Moderator, Admin")
	ErrInvalidStatus   = NewValidationError("applicationStatus must be one of pending, completed, rejected")
	ErrInvalidPayment  = NewValidationError("paymentStatus must be one of unpaid, pending, paid")
	ErrInvalidAmount   = NewValidationError("Invalid amount")
	ErrAmountMismatch  = NewValidationError("amount does not match the application fee")
	ErrInvalidIDFormat = NewValidationError("invalid ID format")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError creates a new custom error for invalid input with a message
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// NewPaymentGatewayError wraps a provider failure. The provider detail is kept
// in Cause for logging and never rendered to clients.
func NewPaymentGatewayError(message string, cause error) error {
	return &CustomError{
		Err:     ErrPaymentGateway,
		Message: message,
		Cause:   cause,
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Cause   error
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// PublicMessage returns the message that is safe to show to a client, or
// fallback when err carries none.
func PublicMessage(err error, fallback string) string {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return fallback
}
