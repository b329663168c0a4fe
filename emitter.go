// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/canonical/lightsql/typeconv"
)

// Emitter is the SQL generator shared by the predefined dialects. Each
// dialect is an Emitter configured with the clauses its database accepts
// and the converters rendering its literals.
type Emitter struct {
	name        string
	offsetLimit bool
	forUpdate   bool
	noWait      bool
	waitN       bool
	// deleteAlias repeats the alias of the table between DELETE and FROM.
	deleteAlias bool
	// dmlAS writes AS between the table and its alias in UPDATE and DELETE.
	dmlAS bool
	// dollar numbers the placeholders $1, $2... when prepared.
	dollar bool
	// textBytes reads []byte driver values as strings.
	textBytes bool
	// unboundedLimit is the LIMIT written before an OFFSET when there is
	// no limit, for databases that reject OFFSET alone.
	unboundedLimit string
	maskDSN    func(url string) string
	options    DialectOptions
	converters *typeconv.Registry
}

var _ Dialect = (*Emitter)(nil)

func (e *Emitter) Name() string {
	return e.name
}

func (e *Emitter) String() string {
	return e.name
}

func (e *Emitter) SupportsOffsetLimit() bool {
	return e.offsetLimit
}

// Options returns the options the dialect was built with.
func (e *Emitter) Options() DialectOptions {
	return e.options
}

func (e *Emitter) SelectSQL(stmt *Statement, params *[]any) (string, error) {
	return e.selectSQL(stmt, "", false, params)
}

func (e *Emitter) SubSelectSQL(stmt *Statement, params *[]any) (string, error) {
	return e.selectSQL(stmt, "", true, params)
}

func (e *Emitter) SubSelectColumnsSQL(stmt *Statement, columns string, params *[]any) (string, error) {
	if columns == "" {
		return "", invariantf("empty column list")
	}
	return e.selectSQL(stmt, columns, true, params)
}

// tableRef writes a table and its alias.
func tableRef(r *renderer, t Table, as bool) {
	r.WriteString(t.Info.TableName())
	if t.Alias == "" {
		return
	}
	if as {
		r.WriteString(" AS ")
	} else {
		r.WriteString(" ")
	}
	r.WriteString(t.Alias)
}

func (e *Emitter) selectSQL(stmt *Statement, columns string, sub bool, params *[]any) (string, error) {
	if err := stmt.Err(); err != nil {
		return "", err
	}
	r := newRenderer(e, stmt, params)
	r.WriteString("SELECT ")
	if stmt.distinct {
		r.WriteString("DISTINCT ")
	}
	if columns != "" {
		r.WriteString(columns)
	} else if err := e.projection(r); err != nil {
		return "", err
	}

	r.WriteString(" FROM ")
	tableRef(r, stmt.main, false)
	for _, j := range stmt.joins {
		r.WriteString(" ")
		r.WriteString(j.Type.String())
		r.WriteString(" ")
		tableRef(r, j.Table, false)
		if !omitted(j.On) {
			r.WriteString(" ON ")
			if err := j.On.render(r); err != nil {
				return "", err
			}
		}
	}
	if err := clause(r, " WHERE ", stmt.where); err != nil {
		return "", err
	}
	if len(stmt.groupBy) > 0 {
		r.WriteString(" GROUP BY ")
		for i, g := range stmt.groupBy {
			if i > 0 {
				r.WriteString(", ")
			}
			if err := g.render(r); err != nil {
				return "", err
			}
		}
	}
	if err := clause(r, " HAVING ", stmt.having); err != nil {
		return "", err
	}
	if sub {
		return r.String(), nil
	}

	if len(stmt.orderBy) > 0 {
		r.WriteString(" ORDER BY ")
		for i, o := range stmt.orderBy {
			if i > 0 {
				r.WriteString(", ")
			}
			if err := o.Expr.render(r); err != nil {
				return "", err
			}
			if o.Order != "" {
				r.WriteString(" ")
				r.WriteString(o.Order)
			}
		}
	}
	if e.offsetLimit {
		if stmt.limit != NoLimit {
			r.WriteString(" LIMIT ")
			r.WriteString(strconv.Itoa(stmt.limit))
		} else if stmt.offset > 0 && e.unboundedLimit != "" {
			r.WriteString(" LIMIT ")
			r.WriteString(e.unboundedLimit)
		}
		if stmt.offset > 0 {
			r.WriteString(" OFFSET ")
			r.WriteString(strconv.Itoa(stmt.offset))
		}
	}
	if stmt.forUpdate {
		e.lockClause(r, stmt.waitTime)
	}
	return r.String(), nil
}

// clause writes keyword and cond unless cond is omitted.
func clause(r *renderer, keyword string, cond Condition) error {
	if omitted(cond) {
		return nil
	}
	r.WriteString(keyword)
	return cond.render(r)
}

func (e *Emitter) lockClause(r *renderer, waitTime int) {
	if !e.forUpdate {
		r.WriteString(" /* " + e.name + " does not support FOR UPDATE */")
		return
	}
	r.WriteString(" FOR UPDATE")
	switch {
	case waitTime == 0 && e.noWait:
		r.WriteString(" NOWAIT")
	case waitTime == 0:
		r.WriteString(" /* " + e.name + " does not support NOWAIT */")
	case waitTime == Forever:
	case e.waitN:
		r.WriteString(" WAIT " + strconv.Itoa(waitTime))
	default:
		r.WriteString(" /* " + e.name + " does not support WAIT " + strconv.Itoa(waitTime) + " */")
	}
}

// projection writes the selected columns of every table of the statement,
// each labelled with its column alias.
func (e *Emitter) projection(r *renderer) error {
	stmt := r.stmt
	n := 0
	for i, t := range stmt.selectTables() {
		for _, col := range stmt.selectedColumns(t) {
			if n > 0 {
				r.WriteString(", ")
			}
			n++
			key := col.PropertyName
			if i > 0 {
				key = t.Alias + "." + key
			}
			plain := false
			switch x, ok := stmt.expressions[key]; {
			case ok:
				if err := scoped(r, t.Alias, x.content, x.args); err != nil {
					return err
				}
			case col.SelectExpression != "":
				if err := scoped(r, t.Alias, col.SelectExpression, nil); err != nil {
					return err
				}
			default:
				r.WriteString(col.QualifiedColumn(t.Alias))
				plain = true
			}
			label := col.ColumnAlias(t.Alias)
			if !plain || label != col.QualifiedColumn(t.Alias) {
				r.WriteString(" AS ")
				r.WriteString(label)
			}
		}
	}
	if n == 0 {
		r.WriteString("*")
	}
	return nil
}

// scoped renders an expression in which bare property names belong to the
// table with the given alias.
func scoped(r *renderer, alias, content string, args []any) error {
	sr := r.sub(alias)
	if err := sr.expression(content, args); err != nil {
		return err
	}
	r.WriteString(sr.String())
	return nil
}

func (e *Emitter) InsertSQL(stmt *Statement, params *[]any) (string, error) {
	if err := stmt.Err(); err != nil {
		return "", err
	}
	if stmt.entity == nil {
		return "", statef("INSERT without an entity")
	}
	r := newRenderer(e, stmt, params)
	info := stmt.main.Info
	var cols []string
	for _, col := range info.Columns() {
		if col.IsInsertable {
			cols = append(cols, col.ColumnName)
		}
	}
	if len(cols) == 0 {
		return "", statef("%s has no insertable columns", info.TableName())
	}

	r.WriteString("INSERT INTO ")
	r.WriteString(info.TableName())
	r.WriteString(" (")
	r.WriteString(strings.Join(cols, ", "))
	r.WriteString(") VALUES (")
	n := 0
	for _, col := range info.Columns() {
		if !col.IsInsertable {
			continue
		}
		if n > 0 {
			r.WriteString(", ")
		}
		n++
		var err error
		if col.InsertExpression != "" {
			err = r.expression(col.InsertExpression, nil)
		} else {
			err = r.entityValue(col.PropertyName)
		}
		if err != nil {
			return "", err
		}
	}
	r.WriteString(")")
	return r.String(), nil
}

func (e *Emitter) UpdateSQL(stmt *Statement, params *[]any) (string, error) {
	if err := stmt.Err(); err != nil {
		return "", err
	}
	cols := stmt.updatedColumns()
	if len(cols) == 0 {
		return "", statef("no columns to update in %s", stmt.main.Info.TableName())
	}
	r := newRenderer(e, stmt, params)
	r.WriteString("UPDATE ")
	tableRef(r, stmt.main, e.dmlAS)
	r.WriteString(" SET ")
	for i, col := range cols {
		if i > 0 {
			r.WriteString(", ")
		}
		r.WriteString(col.ColumnName)
		r.WriteString(" = ")
		var err error
		if x, ok := stmt.expressions[col.PropertyName]; ok {
			err = r.expression(x.content, x.args)
		} else if col.UpdateExpression != "" {
			err = r.expression(col.UpdateExpression, nil)
		} else if stmt.entity == nil {
			err = statef("UPDATE of %q without an entity", col.PropertyName)
		} else {
			err = r.entityValue(col.PropertyName)
		}
		if err != nil {
			return "", err
		}
	}
	if err := clause(r, " WHERE ", stmt.where); err != nil {
		return "", err
	}
	return r.String(), nil
}

func (e *Emitter) DeleteSQL(stmt *Statement, params *[]any) (string, error) {
	if err := stmt.Err(); err != nil {
		return "", err
	}
	r := newRenderer(e, stmt, params)
	r.WriteString("DELETE ")
	if e.deleteAlias && stmt.main.Alias != "" {
		r.WriteString(stmt.main.Alias)
		r.WriteString(" ")
	}
	r.WriteString("FROM ")
	tableRef(r, stmt.main, e.dmlAS)
	if err := clause(r, " WHERE ", stmt.where); err != nil {
		return "", err
	}
	return r.String(), nil
}

func (e *Emitter) Converters() *typeconv.Registry {
	return e.converters
}

func (e *Emitter) Convert(value any, typ reflect.Type) (any, error) {
	return e.converters.Convert(value, typ)
}

// ToSQL renders nil values as NULL. Other values are bound as parameters
// unless the dialect inlines literals and has a converter for them.
func (e *Emitter) ToSQL(value any) (typeconv.SQLString, error) {
	if isNil(value) {
		return typeconv.Null, nil
	}
	if _, ok := value.(io.Reader); ok || !e.options.InlineLiterals {
		return typeconv.Param(value), nil
	}
	out, err := e.converters.Convert(value, typeconv.SQLStringType())
	if err != nil {
		var ce *typeconv.ConvertError
		if errors.As(err, &ce) && ce.Err == nil {
			return typeconv.Param(value), nil
		}
		return typeconv.SQLString{}, err
	}
	return out.(typeconv.SQLString), nil
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		return v.IsNil()
	}
	return false
}

var (
	passwordParam = regexp.MustCompile(`(?i)(password=)[^;&\s]*`)
	userInfo      = regexp.MustCompile(`(://[^:/@\s]+:)[^@\s]*@`)
)

// MaskPassword replaces the password of a connection URL with "****".
func (e *Emitter) MaskPassword(url string) string {
	if e.maskDSN != nil {
		url = e.maskDSN(url)
	}
	url = passwordParam.ReplaceAllString(url, "${1}****")
	return userInfo.ReplaceAllString(url, "${1}****@")
}

// maskURL masks a URL whose dialect is not known.
func maskURL(url string) string {
	return Standard.MaskPassword(url)
}

func (e *Emitter) ReadValue(row *Row, label string) (any, error) {
	v, ok := row.Value(label)
	if !ok {
		return nil, fmt.Errorf("no column %q in result", label)
	}
	if b, ok := v.([]byte); ok && e.textBytes {
		return string(b), nil
	}
	return v, nil
}

// Rebind numbers the placeholders of query for dialects that need it.
// Placeholders in string literals, quoted identifiers and comments are
// left alone.
func (e *Emitter) Rebind(query string) string {
	if !e.dollar || strings.IndexByte(query, '?') < 0 {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'' || c == '"':
			j := i + 1
			for j < len(query) && query[j] != c {
				j++
			}
			sb.WriteString(query[i:min(j+1, len(query))])
			i = j
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			j := strings.IndexByte(query[i:], '\n')
			if j < 0 {
				j = len(query) - i - 1
			}
			sb.WriteString(query[i : i+j+1])
			i += j
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			j := strings.Index(query[i+2:], "*/")
			end := len(query)
			if j >= 0 {
				end = i + 2 + j + 2
			}
			sb.WriteString(query[i:end])
			i = end - 1
		case c == '?':
			n++
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
