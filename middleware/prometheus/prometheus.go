// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package prometheus provides a middleware that records the duration of
// statements in a Prometheus summary labelled by statement type and table.
package prometheus

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/canonical/lightsql"
)

// MiddlewareBuilder builds a metrics middleware. Name is required.
type MiddlewareBuilder struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string

	// Registerer receives the summary. It defaults to
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Build registers the summary and returns the middleware. It fails if a
// collector with the same name is already registered.
func (b MiddlewareBuilder) Build() (lightsql.Middleware, error) {
	vec := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: b.Namespace,
		Subsystem: b.Subsystem,
		Name:      b.Name,
		Help:      b.Help,
		Objectives: map[float64]float64{
			0.5:   0.01,
			0.75:  0.01,
			0.90:  0.01,
			0.99:  0.001,
			0.999: 0.0001,
		},
	}, []string{"type", "table"})
	reg := b.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(vec); err != nil {
		return nil, err
	}
	return func(next lightsql.Handler) lightsql.Handler {
		return func(ctx context.Context, qc *lightsql.QueryContext) *lightsql.QueryResult {
			start := time.Now()
			defer func() {
				vec.WithLabelValues(qc.Type, qc.Table).Observe(float64(time.Since(start).Milliseconds()))
			}()
			return next(ctx, qc)
		}
	}, nil
}
