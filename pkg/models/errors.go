package models

import "fmt"

// ValidationError reports bad input shape or range. Core functions reject
// with it before performing any computation or write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for a named field.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an absent loan, payment or customer reference.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConflictError reports a duplicate identifier on insert.
type ConflictError struct {
	Kind string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Kind, e.ID)
}

// ConsistencyError reports an outstanding snapshot whose total does not
// reconcile with its buckets. It should never occur; callers must treat it
// as fatal and refuse to proceed rather than silently correct.
type ConsistencyError struct {
	LoanID string
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("loan %s inconsistent: %s", e.LoanID, e.Detail)
}
