// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"fmt"
)

// Expression is a SQL fragment with placeholders:
//
//	{}         the next argument
//	{prop}     the column of a property of the main table
//	{A.prop}   the column of a property of the table with alias A
//	{A_prop}   the label of a column in the SELECT list
//	{#prop}    the value of a property of the current entity
//
// Arguments and property values are rendered through the converters of
// the dialect. An Expression is a Condition.
type Expression struct {
	content string
	args    []any
}

// Expr returns an expression of content and its arguments. The number of
// {} placeholders must match the number of arguments.
func Expr(content string, args ...any) *Expression {
	return &Expression{content: content, args: args}
}

func (e *Expression) Content() string {
	if e == nil {
		return ""
	}
	return e.content
}

// Args returns a copy of the arguments.
func (e *Expression) Args() []any {
	if e == nil {
		return nil
	}
	return append([]any(nil), e.args...)
}

// IsEmpty reports whether the content is empty. An empty expression is
// equivalent to the Empty condition.
func (e *Expression) IsEmpty() bool {
	return e == nil || e.content == ""
}

func (e *Expression) String() string {
	if e == nil {
		return ""
	}
	if len(e.args) == 0 {
		return e.content
	}
	return fmt.Sprintf("%s %v", e.content, e.args)
}

func (e *Expression) render(r *renderer) error {
	return r.expression(e.content, e.args)
}
