// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"errors"
	"fmt"

	"github.com/canonical/lightsql/entity"
	"github.com/canonical/lightsql/internal/expr"
)

// The kinds of error returned by this package. Every error returned by a
// builder or a terminal matches one of them with errors.Is, except the
// errors returned by consumers and lifecycle methods, which are returned
// unchanged.
var (
	// ErrInvariant is matched by errors caused by a missing or forbidden
	// argument, such as a nil entity or condition.
	ErrInvariant = errors.New("invalid argument")

	// ErrState is matched by errors caused by a builder that is not in a
	// valid state for the requested terminal.
	ErrState = errors.New("invalid builder state")

	// ErrMetadata is matched by errors describing an entity type that
	// cannot be used.
	ErrMetadata = entity.ErrMetadata

	// ErrTemplate is matched by errors describing malformed expressions.
	ErrTemplate = expr.ErrTemplate

	// ErrConfig is matched by errors resolving a dialect or a connection
	// supplier.
	ErrConfig = errors.New("invalid configuration")

	// ErrExecution is matched by *ExecutionError.
	ErrExecution = errors.New("cannot execute statement")

	// ErrManyRows is matched by *ManyRowsError.
	ErrManyRows = errors.New("more than one row")
)

// ExecutionError wraps an error reported by the database driver.
type ExecutionError struct {
	// SQL is the statement that failed. It is empty when the failure
	// happened before a statement was prepared.
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	if e.SQL == "" {
		return fmt.Sprintf("%s: %s", ErrExecution, e.Err)
	}
	return fmt.Sprintf("%s %q: %s", ErrExecution, e.SQL, e.Err)
}

func (e *ExecutionError) Unwrap() []error {
	return []error{ErrExecution, e.Err}
}

// ManyRowsError is returned by single row selects that found more than one
// row.
type ManyRowsError struct {
	SQL string
}

func (e *ManyRowsError) Error() string {
	return fmt.Sprintf("%s returned by %q", ErrManyRows, e.SQL)
}

func (e *ManyRowsError) Is(target error) bool {
	return target == ErrManyRows
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvariant}, args...)...)
}

func statef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrState}, args...)...)
}

func templatef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrTemplate}, args...)...)
}

func configf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfig}, args...)...)
}
