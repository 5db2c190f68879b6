package dto

// APIError represents a structured error response.
// All error responses from the API use this format for consistency.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Common error codes
const (
	ErrCodeNotFound         = "not_found"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeInternalError    = "internal_error"
	ErrCodeValidation       = "validation_error"
	ErrCodeDuplicateService = "duplicate_service"
	ErrCodeAlreadyLinked    = "already_linked"
	ErrCodeUnauthorized     = "unauthorized"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{
		Code:    code,
		Message: message,
	}
}

// NotFoundError creates a not found error response.
func NotFoundError(message string) APIError {
	return NewAPIError(ErrCodeNotFound, message)
}

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError creates an internal server error response.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// ValidationError creates a validation error response for field.
func ValidationError(field, message string) APIError {
	return APIError{Code: ErrCodeValidation, Message: message, Field: field}
}

// ConflictError creates a 409 response body with the given code.
func ConflictError(code, message string) APIError {
	return NewAPIError(code, message)
}
