// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/canonical/lightsql/entity"
)

// Conn is what statements are prepared on. It is satisfied by *sql.DB,
// *sql.Conn, *sql.Tx and *StmtCache. Terminals run in whatever transaction
// the connection belongs to.
type Conn interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// window restricts the rows handed to a row function when the dialect
// cannot.
type window struct {
	skip, limit int
}

var whole = window{limit: NoLimit}

// run executes the SQL generated for stmt through the middleware of env.
// rowFn is called for each row of a query and is nil for other
// statements. The SQL is recorded on stmt before anything can fail.
func run(ctx context.Context, env *Env, conn Conn, stmt *Statement, typ, query string, params []any, w window, rowFn func(*Row) error) (int, error) {
	stmt.generatedSQL = query
	stmt.params = params
	if ctx == nil {
		ctx = context.Background()
	}
	logger := env.logger()
	h := func(ctx context.Context, qc *QueryContext) *QueryResult {
		start := time.Now()
		n, err := execute(ctx, conn, qc, w, rowFn)
		logger.Debug("executed statement", "sql", qc.SQL, "params", qc.Params, "rows", n, "elapsed", time.Since(start), "err", err)
		return &QueryResult{Rows: n, Err: err}
	}
	qc := &QueryContext{
		Type:    typ,
		SQL:     query,
		Params:  params,
		Table:   stmt.main.Info.TableName(),
		Dialect: env.dialect(),
	}
	res := chain(h, env.Middlewares)(ctx, qc)
	if res == nil {
		return 0, &ExecutionError{SQL: query, Err: fmt.Errorf("middleware returned no result")}
	}
	return res.Rows, res.Err
}

// prepare prepares query on conn. done releases the statement.
func prepare(ctx context.Context, conn Conn, query string) (stmt *sql.Stmt, done func(), err error) {
	if l, ok := conn.(statementLender); ok {
		return l.lend(ctx, query)
	}
	stmt, err = conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	return stmt, func() { stmt.Close() }, nil
}

// execute prepares and executes the statement of qc on conn.
func execute(ctx context.Context, conn Conn, qc *QueryContext, w window, rowFn func(*Row) error) (n int, err error) {
	query := qc.SQL
	if rb, ok := qc.Dialect.(Rebinder); ok {
		query = rb.Rebind(query)
	}
	args, err := bindArgs(qc.Params)
	if err != nil {
		return 0, &ExecutionError{SQL: qc.SQL, Err: err}
	}

	stmt, done, err := prepare(ctx, conn, query)
	if err != nil {
		return 0, &ExecutionError{SQL: qc.SQL, Err: err}
	}
	defer done()

	if rowFn == nil {
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, &ExecutionError{SQL: qc.SQL, Err: err}
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, &ExecutionError{SQL: qc.SQL, Err: err}
		}
		return int(affected), nil
	}

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return 0, &ExecutionError{SQL: qc.SQL, Err: err}
	}
	defer rows.Close()
	labels, err := rows.Columns()
	if err != nil {
		return 0, &ExecutionError{SQL: qc.SQL, Err: err}
	}
	row := newRow(labels)
	for i := 0; i < w.skip && rows.Next(); i++ {
	}
	for n < w.limit && rows.Next() {
		if err := rows.Scan(row.dest...); err != nil {
			return n, &ExecutionError{SQL: qc.SQL, Err: err}
		}
		n++
		if err := rowFn(row); err != nil {
			return n, err
		}
	}
	if err := rows.Err(); err != nil {
		return n, &ExecutionError{SQL: qc.SQL, Err: err}
	}
	return n, nil
}

// bindArgs returns the arguments of a statement. Readers are bound as the
// text they hold.
func bindArgs(params []any) ([]any, error) {
	args := make([]any, len(params))
	for i, p := range params {
		r, ok := p.(io.Reader)
		if !ok {
			args[i] = p
			continue
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("cannot read parameter %d: %w", i+1, err)
		}
		args[i] = string(b)
	}
	return args, nil
}

// readEntity builds an entity of table t from the columns of row labelled
// with the aliases of cols, then lets it complete itself.
func readEntity(ctx context.Context, d Dialect, conn Conn, t Table, cols []entity.ColumnInfo, row *Row) (any, error) {
	e := t.Info.New()
	acc := t.Info.Accessor()
	for _, col := range cols {
		label := col.ColumnAlias(t.Alias)
		if _, ok := row.Value(label); !ok {
			label = col.ColumnName
		}
		v, err := d.ReadValue(row, label)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if col.ColumnType != nil {
			if v, err = d.Convert(v, col.ColumnType); err != nil {
				return nil, err
			}
		}
		typ, err := acc.TypeOf(col.PropertyName)
		if err != nil {
			return nil, err
		}
		for typ.Kind() == reflect.Pointer {
			typ = typ.Elem()
		}
		if v, err = d.Convert(v, typ); err != nil {
			return nil, err
		}
		if err := acc.Set(e, col.PropertyName, v); err != nil {
			return nil, err
		}
	}
	if pl, ok := e.(PostLoader); ok {
		pl.PostLoad()
	}
	if c, ok := e.(Composite); ok {
		if err := c.PostSelect(ctx, conn); err != nil {
			return nil, err
		}
	}
	return e, nil
}
