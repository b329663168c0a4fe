// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql_test

import (
	. "gopkg.in/check.v1"

	"github.com/canonical/lightsql"
)

type ConditionSuite struct{}

var _ = Suite(&ConditionSuite{})

func (s *ConditionSuite) TestNormalization(c *C) {
	a := lightsql.Expr("A")
	b := lightsql.Expr("B")

	c.Check(lightsql.And(), Equals, lightsql.Empty)
	c.Check(lightsql.Or(), Equals, lightsql.Empty)
	c.Check(lightsql.And(lightsql.Empty, lightsql.Empty), Equals, lightsql.Empty)
	c.Check(lightsql.And(lightsql.All), Equals, lightsql.All)
	c.Check(lightsql.And(lightsql.All, a), Equals, lightsql.Condition(a))
	c.Check(lightsql.Or(a, lightsql.All), Equals, lightsql.All)
	c.Check(lightsql.Or(lightsql.Empty, b), Equals, lightsql.Condition(b))
	c.Check(lightsql.Not(lightsql.Empty), Equals, lightsql.Empty)
	c.Check(lightsql.Not(lightsql.Not(a)), Equals, lightsql.Condition(a))
	c.Check(lightsql.Not(lightsql.Not(lightsql.All)), Equals, lightsql.All)
	c.Check(lightsql.Expr("").IsEmpty(), Equals, true)
	c.Check(lightsql.All.IsEmpty(), Equals, false)
	c.Check(lightsql.Empty.IsEmpty(), Equals, true)
}

func (s *ConditionSuite) TestExpressionString(c *C) {
	var nilExpr *lightsql.Expression
	c.Check(nilExpr.String(), Equals, "")
	c.Check(lightsql.Expr("{id} = 1").String(), Equals, "{id} = 1")
	c.Check(lightsql.Expr("{id} IN ({}, {})", 1, 2).String(), Equals, "{id} IN ({}, {}) [1 2]")
}

func (s *ConditionSuite) TestRender(c *C) {
	stmt := lightsql.New[Contact]().Statement()
	a := lightsql.Expr("A")
	b := lightsql.Expr("B")
	x := lightsql.Expr("X")

	tests := []struct {
		summary  string
		cond     lightsql.Condition
		expected string
	}{{
		summary:  "expression",
		cond:     a,
		expected: "A",
	}, {
		summary:  "all",
		cond:     lightsql.All,
		expected: "1=1",
	}, {
		summary:  "not all",
		cond:     lightsql.Not(lightsql.All),
		expected: "0=1",
	}, {
		summary:  "not",
		cond:     lightsql.Not(a),
		expected: "NOT(A)",
	}, {
		summary:  "or in and",
		cond:     lightsql.And(lightsql.Or(a, b), x),
		expected: "(A OR B) AND X",
	}, {
		summary:  "and in or",
		cond:     lightsql.Or(lightsql.And(a, b), x),
		expected: "(A AND B) OR X",
	}, {
		summary:  "flattened and",
		cond:     lightsql.And(lightsql.And(a, b), x),
		expected: "A AND B AND X",
	}, {
		summary:  "flattened or",
		cond:     lightsql.Or(a, lightsql.Or(b, x)),
		expected: "A OR B OR X",
	}, {
		summary:  "not of or",
		cond:     lightsql.Not(lightsql.Or(a, b)),
		expected: "NOT(A OR B)",
	}, {
		summary:  "empty operands dropped",
		cond:     lightsql.And(lightsql.Empty, a, lightsql.Expr(""), b),
		expected: "A AND B",
	}}

	for i, test := range tests {
		c.Logf("test %d: %s", i, test.summary)
		sql, params, err := lightsql.RenderCondition(lightsql.Standard, stmt, test.cond)
		c.Assert(err, IsNil)
		c.Check(sql, Equals, test.expected)
		c.Check(params, HasLen, 0)
	}
}

func (s *ConditionSuite) TestPlaceholders(c *C) {
	stmt := lightsql.New[Contact]("C").InnerJoin(Phone{}, "P", "{P.contactID} = {C.id}").Statement()
	lightsql.SetEntity(stmt, &Contact{ID: 7, FamilyName: "Apple"})

	tests := []struct {
		summary  string
		cond     lightsql.Condition
		expected string
		params   []any
	}{{
		summary:  "bare property of the main table",
		cond:     lightsql.Expr("{familyName} = {}", "Apple"),
		expected: "C.familyName = ?",
		params:   []any{"Apple"},
	}, {
		summary:  "qualified properties",
		cond:     lightsql.Expr("{P.label} = {} AND {C.givenName} LIKE {}", "home", "A%"),
		expected: "P.label = ? AND C.givenName LIKE ?",
		params:   []any{"home", "A%"},
	}, {
		summary:  "column alias",
		cond:     lightsql.Expr("{C_familyName} IS NOT NULL"),
		expected: "C_familyName IS NOT NULL",
	}, {
		summary:  "entity value",
		cond:     lightsql.Expr("{id} = {#id}"),
		expected: "C.id = ?",
		params:   []any{int64(7)},
	}, {
		summary:  "null argument",
		cond:     lightsql.Expr("{birthday} IS {}", nil),
		expected: "C.birthday IS NULL",
	}, {
		summary:  "braces in quotes",
		cond:     lightsql.Expr("{givenName} = '{x}'"),
		expected: "C.givenName = '{x}'",
	}, {
		summary:  "entity condition",
		cond:     lightsql.OfEntity(&Contact{ID: 3}),
		expected: "C.id = ?",
		params:   []any{int64(3)},
	}}

	for i, test := range tests {
		c.Logf("test %d: %s", i, test.summary)
		sql, params, err := lightsql.RenderCondition(lightsql.Standard, stmt, test.cond)
		c.Assert(err, IsNil)
		c.Check(sql, Equals, test.expected)
		c.Check(params, HasLen, len(test.params))
		for j := range test.params {
			c.Check(params[j], Equals, test.params[j])
		}
	}
}

func (s *ConditionSuite) TestEntityConditionWithCompositeKey(c *C) {
	stmt := lightsql.New[Phone]().Statement()
	key := lightsql.OfEntity(&Phone{ContactID: 1, ChildIndex: 2})

	sql, params, err := lightsql.RenderCondition(lightsql.Standard, stmt, key)
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "contactId = ? AND childIndex = ?")
	c.Check(params, DeepEquals, []any{int64(1), int16(2)})

	sql, _, err = lightsql.RenderCondition(lightsql.Standard, stmt, lightsql.Or(key, lightsql.Expr("{label} = 'home'")))
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "(contactId = ? AND childIndex = ?) OR label = 'home'")
}

func (s *ConditionSuite) TestInlineLiterals(c *C) {
	d, err := lightsql.NewDialect("Standard", lightsql.DialectOptions{
		Limits:         lightsql.DefaultDialectOptions.Limits,
		InlineLiterals: true,
	})
	c.Assert(err, IsNil)
	stmt := lightsql.New[Contact]().Statement()

	sql, params, err := lightsql.RenderCondition(d, stmt, lightsql.Expr("{familyName} = {} AND {id} > {}", "O'Hara", 10))
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "familyName = 'O''Hara' AND id > 10")
	c.Check(params, HasLen, 0)
}

func (s *ConditionSuite) TestRenderErrors(c *C) {
	stmt := lightsql.New[Contact]().Statement()

	tests := []struct {
		summary string
		cond    lightsql.Condition
		err     string
	}{{
		summary: "unknown property",
		cond:    lightsql.Expr("{nickname} = 1"),
		err:     `invalid expression: cannot resolve {nickname} in Contact`,
	}, {
		summary: "missing argument",
		cond:    lightsql.Expr("{id} = {}"),
		err:     `invalid expression: missing argument 1 in "{id} = {}"`,
	}, {
		summary: "unused argument",
		cond:    lightsql.Expr("{id} = 1", 2),
		err:     `invalid expression: 1 unused arguments in "{id} = 1"`,
	}, {
		summary: "no current entity",
		cond:    lightsql.Expr("{id} = {#id}"),
		err:     `invalid expression: no current entity for {#id}`,
	}, {
		summary: "entity without key",
		cond:    lightsql.OfEntity(&NoKey{Name: "x"}),
		err:     `invalid argument: entity NoKey has no key columns`,
	}, {
		summary: "unclosed brace",
		cond:    lightsql.Expr("{id = 1"),
		err:     `invalid expression: cannot parse "{id = 1": .*`,
	}}

	for i, test := range tests {
		c.Logf("test %d: %s", i, test.summary)
		_, _, err := lightsql.RenderCondition(lightsql.Standard, stmt, test.cond)
		c.Check(err, ErrorMatches, test.err)
	}
}
