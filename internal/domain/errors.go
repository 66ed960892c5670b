package domain

import "fmt"

// ValidationError reports which field of a rule or override failed a write
// invariant. Handlers surface Field verbatim in the 400 body.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
