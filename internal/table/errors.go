package table

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrMissingValue    = errors.New("missing value")
	ErrNotNumeric      = errors.New("value is not numeric")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrDuplicateColumn = errors.New("duplicate column")
)

// ParseError reports a malformed record in a delimited or spreadsheet source.
type ParseError struct {
	Path   string
	Line   int
	Fields int
	Want   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Want > 0 {
		return fmt.Sprintf("parse %s: line %d: got %d fields, want %d", e.Path, e.Line, e.Fields, e.Want)
	}
	return fmt.Sprintf("parse %s: line %d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ColumnError names a column that a table does not have.
type ColumnError struct {
	Table  string
	Column string
}

func (e *ColumnError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("column %q not found", e.Column)
	}
	return fmt.Sprintf("column %q not found in table %q", e.Column, e.Table)
}

func (e *ColumnError) Is(target error) bool { return target == ErrColumnNotFound }

// ComputationError aborts a derivation at the first failing row.
type ComputationError struct {
	Column string
	Row    int
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("derive %q: row %d: %v", e.Column, e.Row, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }
