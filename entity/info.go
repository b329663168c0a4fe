// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package entity

import (
	"errors"
	"reflect"
)

// ErrMetadata is matched by errors describing an entity type that cannot
// be used: no columns, colliding column names, bad tags or options naming
// unknown properties.
var ErrMetadata = errors.New("invalid entity metadata")

// ColumnInfo describes the mapping of one entity property to a column.
type ColumnInfo struct {
	// PropertyName is the dotted property path, e.g. "name.first".
	PropertyName string
	ColumnName   string
	// ColumnType, when set, is the type values are converted to before
	// they are bound.
	ColumnType   reflect.Type
	IsKey        bool
	IsSelectable bool
	IsInsertable bool
	IsUpdatable  bool
	// The expressions replace the column in SELECT, INSERT and UPDATE
	// statements. They may contain placeholders and are empty when unset.
	SelectExpression string
	InsertExpression string
	UpdateExpression string
}

// QualifiedColumn returns the column name prefixed with alias.
func (c ColumnInfo) QualifiedColumn(alias string) string {
	if alias == "" {
		return c.ColumnName
	}
	return alias + "." + c.ColumnName
}

// ColumnAlias returns the label of the column in a SELECT with the given
// table alias.
func (c ColumnInfo) ColumnAlias(alias string) string {
	if alias == "" {
		return c.ColumnName
	}
	return alias + "_" + c.ColumnName
}

// Info describes an entity type: its table, its columns in declaration
// order and how to reach its properties. An Info is never modified after
// it has been built.
type Info struct {
	typ        reflect.Type
	tableName  string
	columns    []ColumnInfo
	keyColumns []ColumnInfo
	byProperty map[string]int
	accessor   *Accessor
}

// Type returns the struct type of the entity.
func (info *Info) Type() reflect.Type {
	return info.typ
}

func (info *Info) TableName() string {
	return info.tableName
}

// Columns returns a copy of the columns.
func (info *Info) Columns() []ColumnInfo {
	return append([]ColumnInfo(nil), info.columns...)
}

// KeyColumns returns a copy of the key columns, which may be empty.
func (info *Info) KeyColumns() []ColumnInfo {
	return append([]ColumnInfo(nil), info.keyColumns...)
}

// Column returns the column of a property.
func (info *Info) Column(property string) (ColumnInfo, bool) {
	i, ok := info.byProperty[property]
	if !ok {
		return ColumnInfo{}, false
	}
	return info.columns[i], true
}

// ColumnByName returns the column with the given column name.
func (info *Info) ColumnByName(column string) (ColumnInfo, bool) {
	for _, c := range info.columns {
		if c.ColumnName == column {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// SelectableCount returns the number of columns read by SELECT.
func (info *Info) SelectableCount() int {
	n := 0
	for _, c := range info.columns {
		if c.IsSelectable {
			n++
		}
	}
	return n
}

func (info *Info) Accessor() *Accessor {
	return info.accessor
}

// New returns a pointer to a new zero entity.
func (info *Info) New() any {
	return info.accessor.New()
}
