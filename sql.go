// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"github.com/canonical/lightsql/entity"
)

// Sql builds and executes statements on the table of the entity type E.
// Chaining methods record the first error they meet, which is returned by
// Err and by every terminal. A Sql is not safe for concurrent use.
type Sql[E any] struct {
	stmt *Statement
}

// New returns a builder for the entity type E, optionally aliasing its
// table. The builder uses the default Env.
func New[E any](alias ...string) *Sql[E] {
	a := ""
	if len(alias) > 0 {
		a = alias[0]
	}
	info, err := entity.Of[E]()
	s := &Sql[E]{stmt: newStatement(Default(), info, a)}
	if err != nil {
		s.stmt.setErr(err)
	}
	return s
}

// Statement returns the state of the builder.
func (s *Sql[E]) Statement() *Statement {
	return s.stmt
}

// Err returns the first error met while building.
func (s *Sql[E]) Err() error {
	return s.stmt.err
}

// GeneratedSQL returns the SQL of the last statement executed by a
// terminal. It is kept when the execution fails.
func (s *Sql[E]) GeneratedSQL() string {
	return s.stmt.generatedSQL
}

// Params returns the parameters of GeneratedSQL.
func (s *Sql[E]) Params() []any {
	return s.stmt.Params()
}

func (s *Sql[E]) Distinct() *Sql[E] {
	s.stmt.distinct = true
	return s
}

// Columns adds to the selected columns. Names are property paths, "*" or
// "prefix*" patterns, qualified with the alias of their table when it has
// one, as in "C.familyName" or "P.*". No selected column selects all of
// them.
func (s *Sql[E]) Columns(names ...string) *Sql[E] {
	s.stmt.columns = append(s.stmt.columns, names...)
	return s
}

// SetColumns replaces the selected columns.
func (s *Sql[E]) SetColumns(names []string) *Sql[E] {
	s.stmt.columns = append([]string(nil), names...)
	return s
}

// Expression replaces the column of a property in SELECT and its value in
// UPDATE. Properties of joined tables are named "alias.property". An empty
// content removes the replacement.
func (s *Sql[E]) Expression(property, content string, args ...any) *Sql[E] {
	if content == "" {
		delete(s.stmt.expressions, property)
		return s
	}
	s.stmt.expressions[property] = Expr(content, args...)
	return s
}

func (s *Sql[E]) InnerJoin(sample any, alias, on string, args ...any) *Sql[E] {
	return s.join(InnerJoin, sample, alias, Expr(on, args...))
}

func (s *Sql[E]) LeftJoin(sample any, alias, on string, args ...any) *Sql[E] {
	return s.join(LeftJoin, sample, alias, Expr(on, args...))
}

func (s *Sql[E]) RightJoin(sample any, alias, on string, args ...any) *Sql[E] {
	return s.join(RightJoin, sample, alias, Expr(on, args...))
}

func (s *Sql[E]) InnerJoinCond(sample any, alias string, on Condition) *Sql[E] {
	return s.join(InnerJoin, sample, alias, on)
}

func (s *Sql[E]) LeftJoinCond(sample any, alias string, on Condition) *Sql[E] {
	return s.join(LeftJoin, sample, alias, on)
}

func (s *Sql[E]) RightJoinCond(sample any, alias string, on Condition) *Sql[E] {
	return s.join(RightJoin, sample, alias, on)
}

// join adds a joined table. sample is a value, a pointer or a
// reflect.Type of the joined entity type.
func (s *Sql[E]) join(typ JoinType, sample any, alias string, on Condition) *Sql[E] {
	if sample == nil {
		s.stmt.setErr(invariantf("nil join entity"))
		return s
	}
	if on == nil {
		s.stmt.setErr(invariantf("nil join condition"))
		return s
	}
	info, err := entity.Describe(sample)
	if err != nil {
		s.stmt.setErr(err)
		return s
	}
	t := Table{Alias: alias, Info: info}
	if !s.stmt.addTable(t) {
		s.stmt.env.logger().Warn("join alias already in use", "alias", alias, "table", info.TableName())
	}
	s.stmt.joins = append(s.stmt.joins, Join{Type: typ, Table: t, On: on})
	return s
}

// Where replaces the WHERE condition.
func (s *Sql[E]) Where(content string, args ...any) *Sql[E] {
	return s.WhereCond(Expr(content, args...))
}

func (s *Sql[E]) WhereCond(cond Condition) *Sql[E] {
	if cond == nil {
		s.stmt.setErr(invariantf("nil condition"))
		return s
	}
	s.stmt.where = cond
	return s
}

// WhereEntity makes the WHERE condition match the row of e by its key.
func (s *Sql[E]) WhereEntity(e *E) *Sql[E] {
	if e == nil {
		s.stmt.setErr(invariantf("nil entity"))
		return s
	}
	s.stmt.where = OfEntity(e)
	return s
}

// WhereSub sets a WHERE condition of content followed by the sub-SELECT
// of sub, e.g. WhereSub("EXISTS", New[Phone]("P").Where(...)). The aliases
// of s are resolvable in sub.
func (s *Sql[E]) WhereSub(content string, sub Subquery) *Sql[E] {
	if sub == nil {
		s.stmt.setErr(invariantf("nil subquery"))
		return s
	}
	return s.WhereCond(OfSubquery(content, s, sub))
}

// And adds a condition to the WHERE condition, or to the HAVING condition
// once Having has been called.
func (s *Sql[E]) And(content string, args ...any) *Sql[E] {
	return s.AndCond(Expr(content, args...))
}

func (s *Sql[E]) AndCond(cond Condition) *Sql[E] {
	if cond == nil {
		s.stmt.setErr(invariantf("nil condition"))
		return s
	}
	if s.stmt.havingMode {
		s.stmt.having = And(s.stmt.having, cond)
	} else {
		s.stmt.where = And(s.stmt.where, cond)
	}
	return s
}

func (s *Sql[E]) AndSub(content string, sub Subquery) *Sql[E] {
	if sub == nil {
		s.stmt.setErr(invariantf("nil subquery"))
		return s
	}
	return s.AndCond(OfSubquery(content, s, sub))
}

// Or adds an alternative to the WHERE condition, or to the HAVING
// condition once Having has been called.
func (s *Sql[E]) Or(content string, args ...any) *Sql[E] {
	return s.OrCond(Expr(content, args...))
}

func (s *Sql[E]) OrCond(cond Condition) *Sql[E] {
	if cond == nil {
		s.stmt.setErr(invariantf("nil condition"))
		return s
	}
	if s.stmt.havingMode {
		s.stmt.having = Or(s.stmt.having, cond)
	} else {
		s.stmt.where = Or(s.stmt.where, cond)
	}
	return s
}

func (s *Sql[E]) OrSub(content string, sub Subquery) *Sql[E] {
	if sub == nil {
		s.stmt.setErr(invariantf("nil subquery"))
		return s
	}
	return s.OrCond(OfSubquery(content, s, sub))
}

// Having replaces the HAVING condition. Later calls of And and Or add to
// the HAVING condition.
func (s *Sql[E]) Having(content string, args ...any) *Sql[E] {
	return s.HavingCond(Expr(content, args...))
}

func (s *Sql[E]) HavingCond(cond Condition) *Sql[E] {
	if cond == nil {
		s.stmt.setErr(invariantf("nil condition"))
		return s
	}
	s.stmt.having = cond
	s.stmt.havingMode = true
	return s
}

func (s *Sql[E]) HavingSub(content string, sub Subquery) *Sql[E] {
	if sub == nil {
		s.stmt.setErr(invariantf("nil subquery"))
		return s
	}
	return s.HavingCond(OfSubquery(content, s, sub))
}

// GroupBy appends an element to the GROUP BY clause.
func (s *Sql[E]) GroupBy(content string, args ...any) *Sql[E] {
	s.stmt.groupBy = append(s.stmt.groupBy, Expr(content, args...))
	return s
}

// OrderBy appends an element to the ORDER BY clause. Asc and Desc set its
// direction.
func (s *Sql[E]) OrderBy(content string, args ...any) *Sql[E] {
	s.stmt.orderBy = append(s.stmt.orderBy, OrderItem{Expr: Expr(content, args...)})
	return s
}

func (s *Sql[E]) Asc() *Sql[E] {
	return s.order("ASC")
}

func (s *Sql[E]) Desc() *Sql[E] {
	return s.order("DESC")
}

func (s *Sql[E]) order(dir string) *Sql[E] {
	if len(s.stmt.orderBy) == 0 {
		s.stmt.setErr(statef("%s without ORDER BY", dir))
		return s
	}
	s.stmt.orderBy[len(s.stmt.orderBy)-1].Order = dir
	return s
}

func (s *Sql[E]) Limit(n int) *Sql[E] {
	if n < 0 {
		s.stmt.setErr(invariantf("negative limit %d", n))
		return s
	}
	s.stmt.limit = n
	return s
}

func (s *Sql[E]) Offset(n int) *Sql[E] {
	if n < 0 {
		s.stmt.setErr(invariantf("negative offset %d", n))
		return s
	}
	s.stmt.offset = n
	return s
}

// ForUpdate locks the selected rows.
func (s *Sql[E]) ForUpdate() *Sql[E] {
	s.stmt.forUpdate = true
	return s
}

// NoWait makes a locking select fail instead of waiting for locked rows.
func (s *Sql[E]) NoWait() *Sql[E] {
	s.stmt.waitTime = 0
	return s
}

// Wait makes a locking select wait for locked rows at most the given
// number of seconds.
func (s *Sql[E]) Wait(seconds int) *Sql[E] {
	if seconds < 0 {
		s.stmt.setErr(invariantf("negative wait time %d", seconds))
		return s
	}
	s.stmt.waitTime = seconds
	return s
}

// Connection sets the connection terminals execute on.
func (s *Sql[E]) Connection(conn Conn) *Sql[E] {
	if conn == nil {
		s.stmt.setErr(invariantf("nil connection"))
		return s
	}
	s.stmt.conn = conn
	return s
}

// Context replaces the Env of the builder. Without it, the builder
// executes in the Env carried by the context of its terminal, if any, and
// in Default() otherwise.
func (s *Sql[E]) Context(env *Env) *Sql[E] {
	if env == nil {
		s.stmt.setErr(invariantf("nil environment"))
		return s
	}
	s.stmt.env = env
	s.stmt.envSet = true
	return s
}

// DoIf calls action if cond is true and the first of elseAction otherwise.
func (s *Sql[E]) DoIf(cond bool, action func(*Sql[E]), elseAction ...func(*Sql[E])) *Sql[E] {
	switch {
	case cond && action != nil:
		action(s)
	case !cond && len(elseAction) > 0 && elseAction[0] != nil:
		elseAction[0](s)
	}
	return s
}

// Clone returns an independent copy of the builder.
func (s *Sql[E]) Clone() *Sql[E] {
	return &Sql[E]{stmt: s.stmt.clone()}
}

func (s *Sql[E]) String() string {
	if s.stmt.main.Info == nil {
		return "Sql[?]"
	}
	return "Sql[" + s.stmt.main.Info.TableName() + "]"
}
