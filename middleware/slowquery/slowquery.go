// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package slowquery provides a middleware that logs statements taking
// longer than a threshold.
package slowquery

import (
	"context"
	"log/slog"
	"time"

	"github.com/canonical/lightsql"
)

// MiddlewareBuilder builds a slow query middleware.
type MiddlewareBuilder struct {
	threshold time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewMiddlewareBuilder returns a builder for statements slower than
// threshold. They are logged at Warn level on slog.Default().
func NewMiddlewareBuilder(threshold time.Duration) *MiddlewareBuilder {
	return &MiddlewareBuilder{
		threshold: threshold,
		now:       time.Now,
	}
}

// Logger replaces the logger slow statements are reported to.
func (b *MiddlewareBuilder) Logger(l *slog.Logger) *MiddlewareBuilder {
	b.logger = l
	return b
}

func (b *MiddlewareBuilder) Build() lightsql.Middleware {
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next lightsql.Handler) lightsql.Handler {
		return func(ctx context.Context, qc *lightsql.QueryContext) *lightsql.QueryResult {
			start := b.now()
			res := next(ctx, qc)
			duration := b.now().Sub(start)
			if duration < b.threshold {
				return res
			}
			attrs := []any{"duration", duration, "type", qc.Type, "table", qc.Table, "sql", qc.SQL, "params", qc.Params}
			if res != nil && res.Err != nil {
				attrs = append(attrs, "err", res.Err)
			}
			logger.WarnContext(ctx, "slow query detected", attrs...)
			return res
		}
	}
}
