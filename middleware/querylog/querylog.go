// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package querylog provides a middleware that reports every statement
// before it is executed.
package querylog

import (
	"context"
	"log/slog"

	"github.com/canonical/lightsql"
)

// LogFunc receives the SQL and parameters of a statement.
type LogFunc func(ctx context.Context, query string, params []any)

// MiddlewareBuilder builds a query logging middleware.
type MiddlewareBuilder struct {
	logFunc LogFunc
}

// NewMiddlewareBuilder returns a builder logging statements at Info level
// on slog.Default().
func NewMiddlewareBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{
		logFunc: func(ctx context.Context, query string, params []any) {
			slog.InfoContext(ctx, "executing statement", "sql", query, "params", params)
		},
	}
}

// LogFunc replaces the function statements are reported to.
func (b *MiddlewareBuilder) LogFunc(fn LogFunc) *MiddlewareBuilder {
	b.logFunc = fn
	return b
}

func (b *MiddlewareBuilder) Build() lightsql.Middleware {
	return func(next lightsql.Handler) lightsql.Handler {
		return func(ctx context.Context, qc *lightsql.QueryContext) *lightsql.QueryResult {
			b.logFunc(ctx, qc.SQL, qc.Params)
			return next(ctx, qc)
		}
	}
}
