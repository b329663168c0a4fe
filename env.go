// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Supplier lends connections to the terminals of builders that have none.
type Supplier interface {
	Acquire(ctx context.Context) (Conn, error)
	Release(conn Conn) error
}

// Env is the context builders execute in: the dialect generating their
// SQL, where they get connections and how executions are observed.
type Env struct {
	Dialect     Dialect
	Supplier    Supplier
	Middlewares []Middleware
	Logger      *slog.Logger
}

// Option configures an Env.
type Option func(*Env)

func WithDialect(d Dialect) Option {
	return func(env *Env) { env.Dialect = d }
}

func WithSupplier(s Supplier) Option {
	return func(env *Env) { env.Supplier = s }
}

// WithMiddlewares appends middleware. The first one is the outermost.
func WithMiddlewares(ms ...Middleware) Option {
	return func(env *Env) { env.Middlewares = append(env.Middlewares, ms...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(env *Env) { env.Logger = l }
}

// NewEnv returns an Env configured with opts. The dialect defaults to
// Standard and the logger to slog.Default().
func NewEnv(opts ...Option) *Env {
	env := &Env{}
	for _, opt := range opts {
		opt(env)
	}
	return env
}

var (
	defaultEnv atomic.Pointer[Env]
	zeroEnv    = &Env{}
)

// Default returns the Env of builders created without one.
func Default() *Env {
	if env := defaultEnv.Load(); env != nil {
		return env
	}
	return zeroEnv
}

// SetDefault replaces the default Env. It is meant to be called once at
// startup, before builders are created.
func SetDefault(env *Env) {
	defaultEnv.Store(env)
}

type envKey struct{}

// WithEnv returns a copy of ctx carrying env. Builders that were not given
// an Env with Context execute in the Env of the context of their terminal.
// Terminals pass their Env this way to the lifecycle methods they call.
func WithEnv(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFrom returns the Env carried by ctx, or Default() if there is none.
func EnvFrom(ctx context.Context) *Env {
	if ctx != nil {
		if env, ok := ctx.Value(envKey{}).(*Env); ok && env != nil {
			return env
		}
	}
	return Default()
}

func (env *Env) dialect() Dialect {
	if env == nil || env.Dialect == nil {
		return Standard
	}
	return env.Dialect
}

func (env *Env) logger() *slog.Logger {
	if env == nil || env.Logger == nil {
		return slog.Default()
	}
	return env.Logger
}

// acquire returns the connection of stmt or one borrowed from the
// supplier. release must be called with the error of the terminal once the
// connection is not needed. A failure to release is returned through it
// when the terminal succeeded, and logged otherwise.
func (env *Env) acquire(ctx context.Context, stmt *Statement) (conn Conn, release func(err *error), err error) {
	if stmt.conn != nil {
		return stmt.conn, func(*error) {}, nil
	}
	if env == nil || env.Supplier == nil {
		return nil, nil, statef("no connection for %s and no supplier", stmt.main.Info.TableName())
	}
	conn, err = env.Supplier.Acquire(ctx)
	if err != nil {
		return nil, nil, &ExecutionError{Err: err}
	}
	release = func(errp *error) {
		rerr := env.Supplier.Release(conn)
		if rerr == nil {
			return
		}
		if *errp == nil {
			*errp = &ExecutionError{Err: fmt.Errorf("cannot release connection: %w", rerr)}
			return
		}
		env.logger().Warn("cannot release connection", "table", stmt.main.Info.TableName(), "err", rerr)
	}
	return conn, release, nil
}
