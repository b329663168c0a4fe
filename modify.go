// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"context"
)

// modify generates a statement with gen and executes it on conn.
func (s *Sql[E]) modify(ctx context.Context, conn Conn, typ string, gen func(*Statement, *[]any) (string, error)) (int, error) {
	var params []any
	query, err := gen(s.stmt, &params)
	if err != nil {
		return 0, err
	}
	return run(ctx, s.stmt.env, conn, s.stmt, typ, query, params, whole, nil)
}

// terminal runs fn on the connection of the builder or one borrowed from
// its Env. fn receives ctx carrying the Env.
func (s *Sql[E]) terminal(ctx context.Context, fn func(ctx context.Context, conn Conn) (int, error)) (n int, err error) {
	if err := s.stmt.Err(); err != nil {
		return 0, err
	}
	ctx = s.stmt.withEnv(ctx)
	conn, release, err := s.stmt.env.acquire(ctx, s.stmt)
	if err != nil {
		return 0, err
	}
	defer release(&err)
	return fn(ctx, conn)
}

// Insert inserts e and returns the number of rows affected, including the
// rows affected by its PreInsert and PostInsert methods.
func (s *Sql[E]) Insert(ctx context.Context, e *E) (int, error) {
	if e == nil {
		return 0, invariantf("nil entity")
	}
	return s.terminal(ctx, func(ctx context.Context, conn Conn) (int, error) {
		return s.insert(ctx, conn, e)
	})
}

// InsertAll inserts each of es.
func (s *Sql[E]) InsertAll(ctx context.Context, es []*E) (int, error) {
	return s.terminal(ctx, func(ctx context.Context, conn Conn) (int, error) {
		count := 0
		for _, e := range es {
			if e == nil {
				return count, invariantf("nil entity")
			}
			n, err := s.insert(ctx, conn, e)
			count += n
			if err != nil {
				return count, err
			}
		}
		return count, nil
	})
}

func (s *Sql[E]) insert(ctx context.Context, conn Conn, e *E) (int, error) {
	if ps, ok := any(e).(PreStorer); ok {
		ps.PreStore()
	}
	count := 0
	if pi, ok := any(e).(PreInserter); ok {
		n, err := pi.PreInsert(ctx, conn)
		count += n
		if err != nil {
			return count, err
		}
	}
	s.stmt.entity = e
	n, err := s.modify(ctx, conn, TypeInsert, s.stmt.env.dialect().InsertSQL)
	count += n
	if err != nil {
		return count, err
	}
	if c, ok := any(e).(Composite); ok {
		n, err := c.PostInsert(ctx, conn)
		count += n
		if err != nil {
			return count, err
		}
	}
	return count, nil
}

// Update updates the row of e. Unless a WHERE condition is set, the row
// is found by the key of e.
func (s *Sql[E]) Update(ctx context.Context, e *E) (int, error) {
	if e == nil {
		return 0, invariantf("nil entity")
	}
	return s.terminal(ctx, func(ctx context.Context, conn Conn) (int, error) {
		return s.update(ctx, conn, e)
	})
}

// UpdateAll updates the row of each of es, found by its key.
func (s *Sql[E]) UpdateAll(ctx context.Context, es []*E) (int, error) {
	return s.terminal(ctx, func(ctx context.Context, conn Conn) (int, error) {
		count := 0
		for _, e := range es {
			if e == nil {
				return count, invariantf("nil entity")
			}
			s.stmt.where = Empty
			n, err := s.update(ctx, conn, e)
			count += n
			if err != nil {
				return count, err
			}
		}
		return count, nil
	})
}

func (s *Sql[E]) update(ctx context.Context, conn Conn, e *E) (int, error) {
	if ps, ok := any(e).(PreStorer); ok {
		ps.PreStore()
	}
	s.stmt.entity = e
	if s.stmt.where.IsEmpty() {
		s.stmt.where = OfEntity(e)
	}
	count, err := s.modify(ctx, conn, TypeUpdate, s.stmt.env.dialect().UpdateSQL)
	if err != nil {
		return count, err
	}
	if _, ok := s.stmt.where.(*entityCondition); ok {
		if c, ok := any(e).(Composite); ok {
			n, err := c.PostUpdate(ctx, conn)
			count += n
			if err != nil {
				return count, err
			}
		}
	}
	return count, nil
}

// Delete deletes the rows matching the WHERE condition. Without a WHERE
// condition nothing is deleted and a warning is logged; WhereCond(All)
// deletes every row.
func (s *Sql[E]) Delete(ctx context.Context) (int, error) {
	if err := s.stmt.Err(); err != nil {
		return 0, err
	}
	ctx = s.stmt.withEnv(ctx)
	if s.stmt.where.IsEmpty() {
		s.stmt.env.logger().Warn("DELETE without WHERE condition ignored", "table", s.stmt.main.Info.TableName())
		return 0, nil
	}
	return s.terminal(ctx, func(ctx context.Context, conn Conn) (int, error) {
		return s.modify(ctx, conn, TypeDelete, s.stmt.env.dialect().DeleteSQL)
	})
}

// DeleteEntity deletes the row of e, found by its key.
func (s *Sql[E]) DeleteEntity(ctx context.Context, e *E) (int, error) {
	if e == nil {
		return 0, invariantf("nil entity")
	}
	return s.terminal(ctx, func(ctx context.Context, conn Conn) (int, error) {
		return s.deleteEntity(ctx, conn, e)
	})
}

// DeleteAll deletes the row of each of es.
func (s *Sql[E]) DeleteAll(ctx context.Context, es []*E) (int, error) {
	return s.terminal(ctx, func(ctx context.Context, conn Conn) (int, error) {
		count := 0
		for _, e := range es {
			if e == nil {
				return count, invariantf("nil entity")
			}
			n, err := s.deleteEntity(ctx, conn, e)
			count += n
			if err != nil {
				return count, err
			}
		}
		return count, nil
	})
}

func (s *Sql[E]) deleteEntity(ctx context.Context, conn Conn, e *E) (int, error) {
	s.stmt.entity = e
	s.stmt.where = OfEntity(e)
	count, err := s.modify(ctx, conn, TypeDelete, s.stmt.env.dialect().DeleteSQL)
	if err != nil {
		return count, err
	}
	if c, ok := any(e).(Composite); ok {
		n, err := c.PostDelete(ctx, conn)
		count += n
		if err != nil {
			return count, err
		}
	}
	return count, nil
}
