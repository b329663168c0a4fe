// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package entity

import (
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"

	"github.com/canonical/lightsql/typeconv"
)

// TableNamer is implemented by entities whose table is not named after
// their type. A TableName of "super" names the table of the first embedded
// entity.
type TableNamer interface {
	TableName() string
}

// SuperTable is the TableName that defers to the embedded entity.
const SuperTable = "super"

// Optioner is implemented by entities that adjust their column mapping in
// code. Options of an entity override those of the entities it embeds,
// which override struct tags.
type Optioner interface {
	EntityOptions() []Option
}

// Option adjusts the columns of an entity.
type Option func(cols columnSet) error

type columnSet map[string]*ColumnInfo

func (cs columnSet) each(props []string, fn func(*ColumnInfo)) error {
	for _, p := range props {
		c, ok := cs[p]
		if !ok {
			return fmt.Errorf("option refers to unknown property %q", p)
		}
		fn(c)
	}
	return nil
}

// ColumnName maps a property to a column name.
func ColumnName(property, column string) Option {
	return func(cs columnSet) error {
		return cs.each([]string{property}, func(c *ColumnInfo) { c.ColumnName = column })
	}
}

// Key marks properties as key columns. Key columns are not updated.
func Key(properties ...string) Option {
	return func(cs columnSet) error {
		return cs.each(properties, func(c *ColumnInfo) {
			c.IsKey = true
			c.IsUpdatable = false
		})
	}
}

// NonInsert excludes properties from INSERT statements.
func NonInsert(properties ...string) Option {
	return func(cs columnSet) error {
		return cs.each(properties, func(c *ColumnInfo) { c.IsInsertable = false })
	}
}

// NonUpdate excludes properties from UPDATE statements.
func NonUpdate(properties ...string) Option {
	return func(cs columnSet) error {
		return cs.each(properties, func(c *ColumnInfo) { c.IsUpdatable = false })
	}
}

// NonSelect excludes properties from SELECT statements.
func NonSelect(properties ...string) Option {
	return func(cs columnSet) error {
		return cs.each(properties, func(c *ColumnInfo) { c.IsSelectable = false })
	}
}

// SelectExpr replaces the column of a property in SELECT statements.
func SelectExpr(property, expr string) Option {
	return func(cs columnSet) error {
		return cs.each([]string{property}, func(c *ColumnInfo) { c.SelectExpression = expr })
	}
}

// InsertExpr replaces the value of a property in INSERT statements.
func InsertExpr(property, expr string) Option {
	return func(cs columnSet) error {
		return cs.each([]string{property}, func(c *ColumnInfo) { c.InsertExpression = expr })
	}
}

// UpdateExpr replaces the value of a property in UPDATE statements.
func UpdateExpr(property, expr string) Option {
	return func(cs columnSet) error {
		return cs.each([]string{property}, func(c *ColumnInfo) { c.UpdateExpression = expr })
	}
}

// ColumnType makes values of a property convert to typ before they are
// bound, and from typ when they are read.
func ColumnType(property string, typ reflect.Type) Option {
	return func(cs columnSet) error {
		return cs.each([]string{property}, func(c *ColumnInfo) { c.ColumnType = typ })
	}
}

// columnTypes are the names accepted by the coltype tag.
var columnTypes = map[string]reflect.Type{
	"int":     reflect.TypeOf(int(0)),
	"int64":   reflect.TypeOf(int64(0)),
	"float64": reflect.TypeOf(float64(0)),
	"string":  reflect.TypeOf(""),
	"bytes":   reflect.TypeOf([]byte(nil)),
	"bool":    reflect.TypeOf(false),
	"time":    reflect.TypeOf(time.Time{}),
	"date":    reflect.TypeOf(typeconv.Date{}),
	"decimal": reflect.TypeOf(decimal.Decimal{}),
}
