package errors

import (
	"fmt"
	"strings"
)

// MissingColumnError is returned when a column referenced by an operation,
// a deletion, a replace anchor or a facet does not exist
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column '%s' does not exist", e.Column)
}

// DuplicateColumnError is returned when a change would create two columns
// with the same name
type DuplicateColumnError struct {
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("column '%s' already exists", e.Column)
}

// ErrorKind separates pre-flight failures from storage failures
type ErrorKind int

const (
	// KindValidation errors are raised before any row is touched
	KindValidation ErrorKind = iota
	// KindPersistence errors come from the durable store
	KindPersistence
)

// String returns the name of the kind
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// OperationError is the single error type returned by operation application
type OperationError struct {
	Kind      ErrorKind
	Operation string // operation name (empty if unknown)
	Err       error
}

func (e *OperationError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation %s", e.Operation))
	}
	parts = append(parts, fmt.Sprintf("%s error", e.Kind))
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap exposes the underlying error
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps a pre-flight failure
func NewValidationError(operation string, err error) *OperationError {
	return &OperationError{Kind: KindValidation, Operation: operation, Err: err}
}

// NewPersistenceError wraps a store failure
func NewPersistenceError(operation string, err error) *OperationError {
	return &OperationError{Kind: KindPersistence, Operation: operation, Err: err}
}

// ConsistencyError reports more than one change data entry for a row id.
// It is raised with panic and means the stored data is corrupt.
type ConsistencyError struct {
	RowID int64
	Count int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("found %d change data elements at index %d", e.Count, e.RowID)
}
