package model

import "fmt"

// ValidationError reports a rejected field on create or update.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DuplicateServiceError reports a normalized-name collision with an existing
// non-cancelled service of the same user.
type DuplicateServiceError struct {
	Name           string
	NormalizedName string
	ExistingID     string
}

func (e *DuplicateServiceError) Error() string {
	if e.ExistingID != "" {
		return fmt.Sprintf("service %q duplicates existing service %s", e.Name, e.ExistingID)
	}
	return fmt.Sprintf("service %q duplicates an existing service", e.Name)
}

// AlreadyLinkedError reports that a transaction already funds a realized
// payment. The existing link must be removed first.
type AlreadyLinkedError struct {
	TransactionID string
	ServiceID     string
	PaymentID     string
}

func (e *AlreadyLinkedError) Error() string {
	if e.ServiceID != "" {
		return fmt.Sprintf("transaction %s is already linked to service %s", e.TransactionID, e.ServiceID)
	}
	return fmt.Sprintf("transaction %s is already linked", e.TransactionID)
}

// NotFoundError reports an unknown id within the requesting user's scope.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}
