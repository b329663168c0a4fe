// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeconv

import "reflect"

// Parameter is the content of a SQLString that stands for a bound value.
const Parameter = "?"

// SQLString is a fragment of SQL text and the values of the parameters it
// contains, in order.
type SQLString struct {
	Content string
	Params  []any
}

// Null is the SQL NULL literal.
var Null = SQLString{Content: "NULL"}

// Literal returns a SQLString that is inlined into the statement text.
func Literal(content string) SQLString {
	return SQLString{Content: content}
}

// Param returns a SQLString that binds v as a statement parameter.
func Param(v any) SQLString {
	return SQLString{Content: Parameter, Params: []any{v}}
}

// IsParameter reports whether the fragment is a single bound parameter.
func (s SQLString) IsParameter() bool {
	return s.Content == Parameter
}

func (s SQLString) String() string {
	return s.Content
}

var sqlStringType = reflect.TypeOf(SQLString{})

// SQLStringType is the destination type of converters that render values
// into SQL.
func SQLStringType() reflect.Type {
	return sqlStringType
}
