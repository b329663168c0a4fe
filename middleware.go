// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import "context"

// The types of statement seen by middleware.
const (
	TypeSelect = "SELECT"
	TypeInsert = "INSERT"
	TypeUpdate = "UPDATE"
	TypeDelete = "DELETE"
)

// QueryContext describes a statement about to be executed.
type QueryContext struct {
	// Type is one of TypeSelect, TypeInsert, TypeUpdate and TypeDelete.
	Type string
	// SQL is the generated SQL, before any rebinding by the dialect.
	SQL    string
	Params []any
	// Table is the table of the main entity.
	Table   string
	Dialect Dialect
}

// QueryResult is the outcome of a statement.
type QueryResult struct {
	// Rows is the number of rows read by a SELECT or affected by another
	// statement.
	Rows int
	Err  error
}

// Handler executes a statement.
type Handler func(ctx context.Context, qc *QueryContext) *QueryResult

// Middleware wraps the execution of every statement of an Env.
type Middleware func(next Handler) Handler

// chain wraps h with ms, the first middleware being the outermost.
func chain(h Handler, ms []Middleware) Handler {
	for i := len(ms) - 1; i >= 0; i-- {
		h = ms[i](h)
	}
	return h
}
