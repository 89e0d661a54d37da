package shared

import "fmt"

// DomainError represents a domain-level error. Code identifies the error
// kind machine-readably; Details carries rule-specific context (current
// state, attempted target, violated field) so callers can translate the
// failure without re-deriving business rules.
type DomainError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so
// errors.Is matches the sentinel errors below against constructed instances.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry.
// The receiver is not modified, keeping the shared sentinels immutable.
func (e *DomainError) WithDetail(key, value string) *DomainError {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// Detail returns the detail value for key, empty when absent.
func (e *DomainError) Detail(key string) string {
	return e.Details[key]
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION_ERROR naming the violated field
// and constraint. Validation failures are raised before any field mutates.
func NewValidationError(field, constraint string) *DomainError {
	return &DomainError{
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("%s %s", field, constraint),
		Details: map[string]string{"field": field, "constraint": constraint},
	}
}

// NewInvalidTransition creates an INVALID_TRANSITION error carrying the
// current and attempted target states.
func NewInvalidTransition(entity, current, target string) *DomainError {
	return &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: fmt.Sprintf("%s cannot transition from %s to %s", entity, current, target),
		Details: map[string]string{"current": current, "target": target},
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrValidation          = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidTransition   = NewDomainError("INVALID_TRANSITION", "State transition not allowed")
	ErrPaymentIncomplete   = NewDomainError("PAYMENT_INCOMPLETE", "Outstanding balance must be zero")
	ErrNotModifiable       = NewDomainError("NOT_MODIFIABLE", "Document can no longer be modified")
	ErrAlreadyConverted    = NewDomainError("ALREADY_CONVERTED", "Quote has already been converted to an order")
	ErrDuplicateNumber     = NewDomainError("DUPLICATE_NUMBER", "Document number already in use")
)
