// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"strings"

	"github.com/canonical/lightsql/entity"
	"github.com/canonical/lightsql/internal/expr"
)

// renderer writes the SQL of conditions and expressions of a statement and
// collects their parameters.
type renderer struct {
	strings.Builder
	dialect Dialect
	stmt    *Statement
	// scope is the alias of the table bare property names belong to.
	scope  string
	params *[]any
}

func newRenderer(d Dialect, stmt *Statement, params *[]any) *renderer {
	return &renderer{dialect: d, stmt: stmt, scope: stmt.main.Alias, params: params}
}

// sub returns a renderer writing to its own buffer, resolving bare
// property names against the table with the given alias.
func (r *renderer) sub(scope string) *renderer {
	return &renderer{dialect: r.dialect, stmt: r.stmt, scope: scope, params: r.params}
}

// operand renders cond, in parentheses if paren is true.
func (r *renderer) operand(cond Condition, paren bool) error {
	if paren {
		r.WriteString("(")
	}
	if err := cond.render(r); err != nil {
		return err
	}
	if paren {
		r.WriteString(")")
	}
	return nil
}

// expression renders content, substituting its placeholders.
func (r *renderer) expression(content string, args []any) error {
	t, err := expr.Parse(content)
	if err != nil {
		return err
	}
	next := 0
	for _, p := range t.Parts() {
		switch p.Kind {
		case expr.Bypass:
			r.WriteString(p.Text)
		case expr.Arg:
			if next >= len(args) {
				return templatef("missing argument %d in %q", next+1, content)
			}
			if err := r.value(args[next]); err != nil {
				return err
			}
			next++
		case expr.Ref:
			s, err := r.resolve(p)
			if err != nil {
				return err
			}
			r.WriteString(s)
		case expr.Value:
			if err := r.entityValue(p.Text); err != nil {
				return err
			}
		}
	}
	if next < len(args) {
		return templatef("%d unused arguments in %q", len(args)-next, content)
	}
	return nil
}

// resolve returns the column or column alias named by a Ref part.
func (r *renderer) resolve(p expr.Part) (string, error) {
	if p.Prefix != "" {
		if t, ok := r.stmt.tables[p.Prefix]; ok {
			if col, ok := t.Info.Column(p.Rest); ok {
				return col.QualifiedColumn(t.Alias), nil
			}
		}
	}
	if t, ok := r.stmt.tables[r.scope]; ok {
		if col, ok := t.Info.Column(p.Text); ok {
			return col.QualifiedColumn(t.Alias), nil
		}
	}
	// Column aliases: the alias itself may contain underscores.
	for i := strings.IndexByte(p.Text, '_'); i > 0; {
		if t, ok := r.stmt.tables[p.Text[:i]]; ok {
			if col, ok := t.Info.Column(p.Text[i+1:]); ok {
				return col.ColumnAlias(t.Alias), nil
			}
		}
		j := strings.IndexByte(p.Text[i+1:], '_')
		if j < 0 {
			break
		}
		i += j + 1
	}
	return "", templatef("cannot resolve {%s} in %s", p.Text, r.stmt.main.Info.TableName())
}

// entityValue renders the value of a property of the current entity.
func (r *renderer) entityValue(property string) error {
	if r.stmt.entity == nil {
		return templatef("no current entity for {#%s}", property)
	}
	info := r.stmt.main.Info
	v, err := info.Accessor().Get(r.stmt.entity, property)
	if err != nil {
		return templatef("cannot render {#%s}: %s", property, err)
	}
	if col, ok := info.Column(property); ok {
		return r.columnValue(col, v)
	}
	return r.value(v)
}

// columnValue renders a value of a column, converted to its column type
// first if it has one.
func (r *renderer) columnValue(col entity.ColumnInfo, v any) error {
	if col.ColumnType != nil && v != nil {
		cv, err := r.dialect.Convert(v, col.ColumnType)
		if err != nil {
			return err
		}
		v = cv
	}
	return r.value(v)
}

// value renders v as a literal or a parameter.
func (r *renderer) value(v any) error {
	ss, err := r.dialect.ToSQL(v)
	if err != nil {
		return err
	}
	r.WriteString(ss.Content)
	*r.params = append(*r.params, ss.Params...)
	return nil
}
