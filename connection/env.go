// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package connection

import (
	"log/slog"

	"github.com/canonical/lightsql"
	"github.com/canonical/lightsql/config"
	"github.com/canonical/lightsql/middleware/slowquery"
)

// NewEnv returns the environment described by cfg: its dialect, a
// supplier for its url and, when a threshold is set, slow query logging.
// opts are applied after the configuration and may override it.
//
// The returned supplier is nil when cfg has no url. It must otherwise be
// closed once the environment is no longer used.
func NewEnv(cfg *config.Config, opts ...lightsql.Option) (*lightsql.Env, Supplier, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	dialect, err := lightsql.NewDialect(cfg.Database, cfg.DialectOptions())
	if err != nil {
		// Plug-in dialects are registered with their options.
		if dialect, err = lightsql.DialectByName(cfg.Database); err != nil {
			return nil, nil, err
		}
	}

	env := lightsql.NewEnv(append([]lightsql.Option{lightsql.WithDialect(dialect)}, opts...)...)
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SlowQueryThreshold > 0 {
		slow := slowquery.NewMiddlewareBuilder(cfg.SlowQueryThreshold).Logger(logger).Build()
		env.Middlewares = append(env.Middlewares, slow)
	}
	if cfg.URL == "" {
		return env, nil, nil
	}

	supplier, err := NewSupplier(cfg.ConnectionSupplier, cfg.URL, logger)
	if err != nil {
		return nil, nil, err
	}
	if env.Supplier == nil {
		env.Supplier = supplier
	}
	return env, supplier, nil
}
