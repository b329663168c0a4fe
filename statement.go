// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"context"
	"math"
	"strings"

	"github.com/canonical/lightsql/entity"
)

const (
	// NoLimit is the default limit of a statement.
	NoLimit = math.MaxInt32

	// Forever is the default wait time of a statement locking rows.
	Forever = math.MaxInt32
)

// JoinType is the kind of a join.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
)

func (t JoinType) String() string {
	switch t {
	case LeftJoin:
		return "LEFT OUTER JOIN"
	case RightJoin:
		return "RIGHT OUTER JOIN"
	}
	return "INNER JOIN"
}

// Table is an occurrence of an entity table in a statement.
type Table struct {
	Alias string
	Info  *entity.Info
}

// Join is a table joined to the main table of a statement.
type Join struct {
	Type JoinType
	Table
	On Condition
}

// OrderItem is an element of an ORDER BY clause. Order is "ASC", "DESC"
// or empty for the database default.
type OrderItem struct {
	Expr  *Expression
	Order string
}

// Statement holds the state of a builder. Dialects read it to generate
// SQL. The builder Sql wraps a Statement and is the way to modify it.
type Statement struct {
	env *Env
	// envSet is true once the Env has been chosen with Sql.Context.
	envSet bool
	main Table
	// tables maps aliases to the tables they name. It holds the main
	// table, the joined tables and, for subqueries, the tables of the
	// enclosing statement.
	tables map[string]Table

	entity      any
	distinct    bool
	columns     []string
	expressions map[string]*Expression
	joins       []Join
	where       Condition
	having      Condition
	havingMode  bool
	groupBy     []*Expression
	orderBy     []OrderItem
	limit       int
	offset      int
	forUpdate   bool
	waitTime    int

	conn         Conn
	generatedSQL string
	params       []any

	// err is the first error met while building.
	err error
}

func newStatement(env *Env, info *entity.Info, alias string) *Statement {
	s := &Statement{
		env:         env,
		main:        Table{Alias: alias, Info: info},
		tables:      make(map[string]Table),
		expressions: make(map[string]*Expression),
		where:       Empty,
		having:      Empty,
		limit:       NoLimit,
		waitTime:    Forever,
	}
	s.tables[alias] = s.main
	return s
}

// withEnv makes a statement without an Env of its own execute in the Env
// of ctx, or in Default() if ctx has none. It returns ctx carrying the Env
// the statement executes in.
func (s *Statement) withEnv(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.envSet {
		s.env = EnvFrom(ctx)
	}
	return WithEnv(ctx, s.env)
}

// setErr records the first error met while building.
func (s *Statement) setErr(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first error met while building, if any.
func (s *Statement) Err() error {
	return s.err
}

// Info returns the entity info of the main table.
func (s *Statement) Info() *entity.Info {
	return s.main.Info
}

// Alias returns the alias of the main table.
func (s *Statement) Alias() string {
	return s.main.Alias
}

// Main returns the main table.
func (s *Statement) Main() Table {
	return s.main
}

// Entity returns the current entity, referenced by {#prop} placeholders.
func (s *Statement) Entity() any {
	return s.entity
}

func (s *Statement) IsDistinct() bool {
	return s.distinct
}

// Columns returns a copy of the selected column names.
func (s *Statement) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Expression returns the expression replacing the column of a property.
// Properties of joined tables are keyed "alias.property".
func (s *Statement) Expression(property string) (*Expression, bool) {
	e, ok := s.expressions[property]
	return e, ok
}

// Joins returns a copy of the joined tables.
func (s *Statement) Joins() []Join {
	return append([]Join(nil), s.joins...)
}

// Table returns the table with the given alias.
func (s *Statement) Table(alias string) (Table, bool) {
	t, ok := s.tables[alias]
	return t, ok
}

func (s *Statement) Where() Condition {
	return s.where
}

func (s *Statement) Having() Condition {
	return s.having
}

// GroupBy returns a copy of the GROUP BY elements.
func (s *Statement) GroupBy() []*Expression {
	return append([]*Expression(nil), s.groupBy...)
}

// OrderBy returns a copy of the ORDER BY elements.
func (s *Statement) OrderBy() []OrderItem {
	return append([]OrderItem(nil), s.orderBy...)
}

func (s *Statement) Limit() int {
	return s.limit
}

func (s *Statement) Offset() int {
	return s.offset
}

func (s *Statement) IsForUpdate() bool {
	return s.forUpdate
}

// WaitTime returns the seconds to wait for locked rows: 0 for NOWAIT and
// Forever when unset.
func (s *Statement) WaitTime() int {
	return s.waitTime
}

// GeneratedSQL returns the SQL of the last statement prepared by a
// terminal, kept when the execution fails.
func (s *Statement) GeneratedSQL() string {
	return s.generatedSQL
}

// Params returns a copy of the parameters of GeneratedSQL.
func (s *Statement) Params() []any {
	return append([]any(nil), s.params...)
}

// Statement returns s. It makes a Statement usable as a Subquery.
func (s *Statement) Statement() *Statement {
	return s
}

// addTable registers a table under its alias. The first table registered
// under an alias wins.
func (s *Statement) addTable(t Table) bool {
	if _, ok := s.tables[t.Alias]; ok {
		return false
	}
	s.tables[t.Alias] = t
	return true
}

// addTables registers the tables of other that do not collide with the
// aliases of s.
func (s *Statement) addTables(other *Statement) {
	if other == nil || other == s {
		return
	}
	for _, t := range other.tables {
		s.addTable(t)
	}
}

// selectTables returns the main table followed by the joined tables.
func (s *Statement) selectTables() []Table {
	out := make([]Table, 0, len(s.joins)+1)
	out = append(out, s.main)
	for _, j := range s.joins {
		out = append(out, j.Table)
	}
	return out
}

// selectedColumns returns the selectable columns of t that match the
// selected column names, or all of them when no names are selected.
func (s *Statement) selectedColumns(t Table) []entity.ColumnInfo {
	var out []entity.ColumnInfo
	for _, col := range t.Info.Columns() {
		if !col.IsSelectable {
			continue
		}
		if len(s.columns) > 0 && !matchesAny(t.Alias, col.PropertyName, s.columns) {
			continue
		}
		out = append(out, col)
	}
	return out
}

// updatedColumns returns the updatable columns of the main table that
// match the selected column names, or all of them when no names are
// selected.
func (s *Statement) updatedColumns() []entity.ColumnInfo {
	var out []entity.ColumnInfo
	for _, col := range s.main.Info.Columns() {
		if !col.IsUpdatable {
			continue
		}
		if len(s.columns) > 0 && !matchesAny(s.main.Alias, col.PropertyName, s.columns) {
			continue
		}
		out = append(out, col)
	}
	return out
}

func matchesAny(alias, property string, names []string) bool {
	for _, name := range names {
		if matchColumn(alias, property, name) {
			return true
		}
	}
	return false
}

// matchColumn reports whether a selected column name designates a property
// of the table with the given alias. Names of aliased tables are prefixed
// with "alias.", and a trailing "*" matches every property starting with
// what precedes it.
func matchColumn(alias, property, name string) bool {
	prefix := ""
	if alias != "" {
		if i := strings.IndexByte(name, '.'); i >= 0 {
			prefix, name = name[:i], name[i+1:]
		}
	}
	if prefix != alias {
		return false
	}
	if stem, ok := strings.CutSuffix(name, "*"); ok {
		return strings.HasPrefix(property, stem)
	}
	return property == name
}

// clone returns a copy of s that shares nothing mutable with it.
func (s *Statement) clone() *Statement {
	c := *s
	c.tables = make(map[string]Table, len(s.tables))
	for k, v := range s.tables {
		c.tables[k] = v
	}
	c.expressions = make(map[string]*Expression, len(s.expressions))
	for k, v := range s.expressions {
		c.expressions[k] = v
	}
	c.columns = s.Columns()
	c.joins = s.Joins()
	c.groupBy = s.GroupBy()
	c.orderBy = s.OrderBy()
	c.params = s.Params()
	return &c
}
