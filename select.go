// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"context"
	"errors"
	"iter"
	"reflect"

	"github.com/canonical/lightsql/entity"
)

// wildcard returns the selected column name matching every column of the
// table with the given alias.
func wildcard(alias string) string {
	if alias == "" {
		return "*"
	}
	return alias + ".*"
}

// target is a table read from each row of a SELECT and the function its
// entities are handed to.
type target struct {
	Table
	fn func(any) error
}

// selectTargets executes a SELECT reading an entity of each target from
// every row. targets holds the main table followed by the first k joined
// tables. Unless columns are selected, the SELECT projects the columns of
// the targets only when there are more joined tables than targets.
func selectTargets(ctx context.Context, s *Statement, targets []target) (err error) {
	if err := s.Err(); err != nil {
		return err
	}
	ctx = s.withEnv(ctx)
	k := len(targets) - 1
	if len(s.joins) < k {
		return statef("select of %d tables with %d joins", k+1, len(s.joins))
	}
	q := s.clone()
	if len(q.columns) == 0 && len(q.joins) > k {
		for _, t := range targets {
			q.columns = append(q.columns, wildcard(t.Alias))
		}
	}
	env := q.env
	d := env.dialect()
	var params []any
	query, err := d.SelectSQL(q, &params)
	if err != nil {
		return err
	}

	conn, release, err := env.acquire(ctx, s)
	if err != nil {
		return err
	}
	defer release(&err)

	cols := make([][]entity.ColumnInfo, len(targets))
	for i, t := range targets {
		cols[i] = q.selectedColumns(t.Table)
	}
	w := whole
	if !d.SupportsOffsetLimit() {
		w = window{skip: q.offset, limit: q.limit}
	}
	_, err = run(ctx, env, conn, s, TypeSelect, query, params, w, func(row *Row) error {
		for i, t := range targets {
			e, err := readEntity(ctx, d, conn, t.Table, cols[i], row)
			if err != nil {
				return err
			}
			if err := t.fn(e); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// joined returns the target of the i-th joined table, which must be of
// the entity type J.
func joined[J any](s *Statement, i int, fn func(*J) error) (target, error) {
	if fn == nil {
		return target{}, invariantf("nil consumer %d", i+2)
	}
	if i >= len(s.joins) {
		return target{}, statef("select of %d tables with %d joins", i+2, len(s.joins))
	}
	t := s.joins[i].Table
	if want := reflect.TypeOf((*J)(nil)).Elem(); t.Info.Type() != want {
		return target{}, statef("joined table %q is %s, not %s", t.Alias, t.Info.Type(), want)
	}
	return target{Table: t, fn: func(e any) error { return fn(e.(*J)) }}, nil
}

func mainTarget[E any](s *Statement, fn func(*E) error) (target, error) {
	if fn == nil {
		return target{}, invariantf("nil consumer")
	}
	return target{Table: s.main, fn: func(e any) error { return fn(e.(*E)) }}, nil
}

// Select executes a SELECT on the table of E and hands each entity read
// to fn. Errors returned by fn stop the select and are returned
// unchanged.
func (s *Sql[E]) Select(ctx context.Context, fn func(*E) error) error {
	t, err := mainTarget(s.stmt, fn)
	if err != nil {
		return err
	}
	return selectTargets(ctx, s.stmt, []target{t})
}

// Select2 executes a SELECT on the table of E and its first joined table,
// of entity type J1. Each row yields an entity of each table.
func Select2[E, J1 any](ctx context.Context, s *Sql[E], fn func(*E) error, fn1 func(*J1) error) error {
	return selectN(ctx, s.stmt, func(ts []target) ([]target, error) {
		t, err := mainTarget(s.stmt, fn)
		if err != nil {
			return nil, err
		}
		t1, err := joined(s.stmt, 0, fn1)
		return append(ts, t, t1), err
	})
}

// Select3 is Select2 with two joined tables.
func Select3[E, J1, J2 any](ctx context.Context, s *Sql[E], fn func(*E) error, fn1 func(*J1) error, fn2 func(*J2) error) error {
	return selectN(ctx, s.stmt, func(ts []target) ([]target, error) {
		t, err := mainTarget(s.stmt, fn)
		if err != nil {
			return nil, err
		}
		t1, err := joined(s.stmt, 0, fn1)
		if err != nil {
			return nil, err
		}
		t2, err := joined(s.stmt, 1, fn2)
		return append(ts, t, t1, t2), err
	})
}

// Select4 is Select2 with three joined tables.
func Select4[E, J1, J2, J3 any](ctx context.Context, s *Sql[E], fn func(*E) error, fn1 func(*J1) error, fn2 func(*J2) error, fn3 func(*J3) error) error {
	return selectN(ctx, s.stmt, func(ts []target) ([]target, error) {
		t, err := mainTarget(s.stmt, fn)
		if err != nil {
			return nil, err
		}
		t1, err := joined(s.stmt, 0, fn1)
		if err != nil {
			return nil, err
		}
		t2, err := joined(s.stmt, 1, fn2)
		if err != nil {
			return nil, err
		}
		t3, err := joined(s.stmt, 2, fn3)
		return append(ts, t, t1, t2, t3), err
	})
}

// Select5 is Select2 with four joined tables.
func Select5[E, J1, J2, J3, J4 any](ctx context.Context, s *Sql[E], fn func(*E) error, fn1 func(*J1) error, fn2 func(*J2) error, fn3 func(*J3) error, fn4 func(*J4) error) error {
	return selectN(ctx, s.stmt, func(ts []target) ([]target, error) {
		t, err := mainTarget(s.stmt, fn)
		if err != nil {
			return nil, err
		}
		t1, err := joined(s.stmt, 0, fn1)
		if err != nil {
			return nil, err
		}
		t2, err := joined(s.stmt, 1, fn2)
		if err != nil {
			return nil, err
		}
		t3, err := joined(s.stmt, 2, fn3)
		if err != nil {
			return nil, err
		}
		t4, err := joined(s.stmt, 3, fn4)
		return append(ts, t, t1, t2, t3, t4), err
	})
}

func selectN(ctx context.Context, s *Statement, build func([]target) ([]target, error)) error {
	if err := s.Err(); err != nil {
		return err
	}
	targets, err := build(nil)
	if err != nil {
		return err
	}
	return selectTargets(ctx, s, targets)
}

// SelectAs executes a SELECT of the columns of the projection type R on
// the table of E and hands each projection read to fn. The properties of
// R must be properties of E.
func SelectAs[E, R any](ctx context.Context, s *Sql[E], fn func(*R) error) error {
	if err := s.stmt.Err(); err != nil {
		return err
	}
	if fn == nil {
		return invariantf("nil consumer")
	}
	ctx = s.stmt.withEnv(ctx)
	info, err := entity.Of[R]()
	if err != nil {
		return err
	}
	q := s.Clone().stmt
	q.columns = nil
	for _, col := range info.Columns() {
		name := col.PropertyName
		if q.main.Alias != "" {
			name = q.main.Alias + "." + name
		}
		q.columns = append(q.columns, name)
	}
	t := target{
		Table: Table{Alias: q.main.Alias, Info: info},
		fn:    func(e any) error { return fn(e.(*R)) },
	}
	return selectProjection(ctx, s.stmt, q, t)
}

// selectProjection executes the SELECT of q, reading t from each row and
// recording the SQL on s.
func selectProjection(ctx context.Context, s, q *Statement, t target) (err error) {
	env := q.env
	d := env.dialect()
	var params []any
	query, err := d.SelectSQL(q, &params)
	if err != nil {
		return err
	}
	conn, release, err := env.acquire(ctx, s)
	if err != nil {
		return err
	}
	defer release(&err)

	var cols []entity.ColumnInfo
	for _, col := range t.Info.Columns() {
		if col.IsSelectable {
			cols = append(cols, col)
		}
	}
	w := whole
	if !d.SupportsOffsetLimit() {
		w = window{skip: q.offset, limit: q.limit}
	}
	_, err = run(ctx, env, conn, s, TypeSelect, query, params, w, func(row *Row) error {
		e, err := readEntity(ctx, d, conn, t.Table, cols, row)
		if err != nil {
			return err
		}
		return t.fn(e)
	})
	return err
}

// SelectOne executes a SELECT expecting at most one row. found is false
// when there is none. More than one row is a *ManyRowsError.
func (s *Sql[E]) SelectOne(ctx context.Context) (e *E, found bool, err error) {
	err = s.Select(ctx, func(row *E) error {
		if found {
			return &ManyRowsError{SQL: s.stmt.generatedSQL}
		}
		e, found = row, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return e, found, nil
}

// SelectOneAs is SelectOne reading the projection type R.
func SelectOneAs[E, R any](ctx context.Context, s *Sql[E]) (r *R, found bool, err error) {
	err = SelectAs(ctx, s, func(row *R) error {
		if found {
			return &ManyRowsError{SQL: s.stmt.generatedSQL}
		}
		r, found = row, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return r, found, nil
}

var intType = reflect.TypeOf(0)

// SelectCount returns the number of rows the SELECT of the builder would
// read, ignoring its ORDER BY, LIMIT and OFFSET.
func (s *Sql[E]) SelectCount(ctx context.Context) (count int, err error) {
	if err := s.stmt.Err(); err != nil {
		return 0, err
	}
	ctx = s.stmt.withEnv(ctx)
	env := s.stmt.env
	d := env.dialect()
	var params []any
	query, err := d.SubSelectColumnsSQL(s.stmt, "COUNT(*)", &params)
	if err != nil {
		return 0, err
	}
	conn, release, err := env.acquire(ctx, s.stmt)
	if err != nil {
		return 0, err
	}
	defer release(&err)

	_, err = run(ctx, env, conn, s.stmt, TypeSelect, query, params, whole, func(row *Row) error {
		v, err := d.Convert(row.Index(0), intType)
		if err != nil {
			return err
		}
		count = v.(int)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

var errStopped = errors.New("iteration stopped")

// Rows returns an iterator over the entities read by Select. An error
// ends the iteration with a nil entity.
func (s *Sql[E]) Rows(ctx context.Context) iter.Seq2[*E, error] {
	return func(yield func(*E, error) bool) {
		err := s.Select(ctx, func(e *E) error {
			if !yield(e, nil) {
				return errStopped
			}
			return nil
		})
		if err != nil && err != errStopped {
			yield(nil, err)
		}
	}
}
