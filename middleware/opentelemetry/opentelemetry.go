// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package opentelemetry provides a middleware that traces every statement
// in its own span, named after the statement type and table, e.g.
// "SELECT-Contact".
package opentelemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/lightsql"
)

const instrumentationName = "github.com/canonical/lightsql/middleware/opentelemetry"

// MiddlewareBuilder builds a tracing middleware. Tracer defaults to the
// tracer of the global provider.
type MiddlewareBuilder struct {
	Tracer trace.Tracer
}

func (b MiddlewareBuilder) Build() lightsql.Middleware {
	tracer := b.Tracer
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return func(next lightsql.Handler) lightsql.Handler {
		return func(ctx context.Context, qc *lightsql.QueryContext) *lightsql.QueryResult {
			spanCtx, span := tracer.Start(ctx, fmt.Sprintf("%s-%s", qc.Type, qc.Table), trace.WithSpanKind(trace.SpanKindClient))
			defer span.End()
			// Parameters are left out: they can be large or sensitive.
			span.SetAttributes(
				attribute.String("sql", qc.SQL),
				attribute.String("table", qc.Table),
				attribute.String("component", "lightsql"),
			)
			if qc.Dialect != nil {
				span.SetAttributes(attribute.String("db.system", qc.Dialect.Name()))
			}
			res := next(spanCtx, qc)
			if res != nil && res.Err != nil {
				span.RecordError(res.Err)
				span.SetStatus(codes.Error, res.Err.Error())
			}
			return res
		}
	}
}
