// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"reflect"

	"github.com/canonical/lightsql/entity"
)

// Condition is a node of a WHERE, HAVING or ON condition tree. Conditions
// are built with Expr, OfEntity, OfSubquery, And, Or and Not, and the
// values Empty and All.
type Condition interface {
	// IsEmpty reports whether the condition is absent. Empty conditions
	// are dropped by And and Or and are not rendered.
	IsEmpty() bool

	render(r *renderer) error
}

var (
	// Empty is the absent condition. A builder whose WHERE is Empty
	// refuses to delete.
	Empty Condition = emptyCondition{}

	// All is the condition satisfied by every row. A WHERE of All is
	// omitted from the statement.
	All Condition = allCondition{}
)

type emptyCondition struct{}

func (emptyCondition) IsEmpty() bool { return true }

func (emptyCondition) render(r *renderer) error { return nil }

func (emptyCondition) String() string { return "Empty" }

type allCondition struct{}

func (allCondition) IsEmpty() bool { return false }

func (allCondition) render(r *renderer) error {
	r.WriteString("1=1")
	return nil
}

func (allCondition) String() string { return "All" }

// noneCondition is the negation of All.
type noneCondition struct{}

func (noneCondition) IsEmpty() bool { return false }

func (noneCondition) render(r *renderer) error {
	r.WriteString("0=1")
	return nil
}

func (noneCondition) String() string { return "None" }

// omitted reports whether a clause holding cond is left out of the
// statement.
func omitted(cond Condition) bool {
	if cond == nil || cond.IsEmpty() {
		return true
	}
	_, ok := cond.(allCondition)
	return ok
}

// entityCondition matches the row of an entity by its key columns.
type entityCondition struct {
	entity any
}

// OfEntity returns the condition matching the row of entity by equality
// of its key columns. entity is a pointer to an entity struct. Rendering
// fails if the entity has no key columns.
func OfEntity(entity any) Condition {
	return &entityCondition{entity: entity}
}

func (c *entityCondition) IsEmpty() bool { return false }

func (c *entityCondition) info() (*entity.Info, error) {
	if c.entity == nil || reflect.ValueOf(c.entity).Kind() == reflect.Pointer && reflect.ValueOf(c.entity).IsNil() {
		return nil, invariantf("entity condition has no entity")
	}
	info, err := entity.Describe(c.entity)
	if err != nil {
		return nil, err
	}
	if len(info.KeyColumns()) == 0 {
		return nil, invariantf("entity %s has no key columns", info.Type().Name())
	}
	return info, nil
}

func (c *entityCondition) render(r *renderer) error {
	info, err := c.info()
	if err != nil {
		return err
	}
	for i, col := range info.KeyColumns() {
		if i > 0 {
			r.WriteString(" AND ")
		}
		v, err := info.Accessor().Get(c.entity, col.PropertyName)
		if err != nil {
			return err
		}
		r.WriteString(col.QualifiedColumn(r.stmt.main.Alias))
		r.WriteString(" = ")
		if err := r.columnValue(col, v); err != nil {
			return err
		}
	}
	return nil
}

// compound reports whether the condition renders more than one comparison.
func (c *entityCondition) compound() bool {
	info, err := c.info()
	return err == nil && len(info.KeyColumns()) > 1
}

// Subquery is implemented by builders that can be rendered as a
// sub-SELECT.
type Subquery interface {
	Statement() *Statement
}

type subqueryCondition struct {
	content *Expression
	sub     *Statement
}

// OfSubquery returns the condition rendering content followed by the
// sub-SELECT of sub in parentheses, e.g. "EXISTS ( SELECT ... )". The
// aliases of outer become resolvable in sub.
func OfSubquery(content string, outer, sub Subquery) Condition {
	c := &subqueryCondition{content: Expr(content)}
	if sub != nil {
		c.sub = sub.Statement()
		if outer != nil {
			c.sub.addTables(outer.Statement())
		}
	}
	return c
}

func (c *subqueryCondition) IsEmpty() bool { return false }

func (c *subqueryCondition) render(r *renderer) error {
	if c.sub == nil {
		return invariantf("subquery condition has no subquery")
	}
	if err := c.content.render(r); err != nil {
		return err
	}
	sub, err := r.dialect.SubSelectSQL(c.sub, r.params)
	if err != nil {
		return err
	}
	r.WriteString(" ( ")
	r.WriteString(sub)
	r.WriteString(" )")
	return nil
}

type andCondition struct {
	conds []Condition
}

// And returns the conjunction of conds. Empty operands are dropped, All
// operands are dropped and nested conjunctions are flattened. The
// conjunction of no operand is Empty, or All if an All was dropped.
func And(conds ...Condition) Condition {
	var out []Condition
	all := false
	for _, c := range conds {
		switch c := c.(type) {
		case nil:
			continue
		case allCondition:
			all = true
			continue
		case *andCondition:
			out = append(out, c.conds...)
			continue
		}
		if c.IsEmpty() {
			continue
		}
		out = append(out, c)
	}
	switch len(out) {
	case 0:
		if all {
			return All
		}
		return Empty
	case 1:
		return out[0]
	}
	return &andCondition{conds: out}
}

func (c *andCondition) IsEmpty() bool { return false }

func (c *andCondition) render(r *renderer) error {
	for i, cond := range c.conds {
		if i > 0 {
			r.WriteString(" AND ")
		}
		_, paren := cond.(*orCondition)
		if err := r.operand(cond, paren); err != nil {
			return err
		}
	}
	return nil
}

type orCondition struct {
	conds []Condition
}

// Or returns the disjunction of conds. Any All operand makes it All,
// Empty operands are dropped and nested disjunctions are flattened.
func Or(conds ...Condition) Condition {
	var out []Condition
	for _, c := range conds {
		switch c := c.(type) {
		case nil:
			continue
		case allCondition:
			return All
		case *orCondition:
			out = append(out, c.conds...)
			continue
		}
		if c.IsEmpty() {
			continue
		}
		out = append(out, c)
	}
	switch len(out) {
	case 0:
		return Empty
	case 1:
		return out[0]
	}
	return &orCondition{conds: out}
}

func (c *orCondition) IsEmpty() bool { return false }

func (c *orCondition) render(r *renderer) error {
	for i, cond := range c.conds {
		if i > 0 {
			r.WriteString(" OR ")
		}
		paren := false
		switch cond := cond.(type) {
		case *andCondition:
			paren = true
		case *entityCondition:
			paren = cond.compound()
		}
		if err := r.operand(cond, paren); err != nil {
			return err
		}
	}
	return nil
}

type notCondition struct {
	cond Condition
}

// Not returns the negation of cond. Not(Not(x)) is x, Not(Empty) is Empty
// and Not(All) renders as 0=1.
func Not(cond Condition) Condition {
	switch c := cond.(type) {
	case nil:
		return Empty
	case allCondition:
		return noneCondition{}
	case noneCondition:
		return All
	case *notCondition:
		return c.cond
	}
	if cond.IsEmpty() {
		return Empty
	}
	return &notCondition{cond: cond}
}

func (c *notCondition) IsEmpty() bool { return false }

func (c *notCondition) render(r *renderer) error {
	r.WriteString("NOT(")
	if err := c.cond.render(r); err != nil {
		return err
	}
	r.WriteString(")")
	return nil
}
