// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package entity

import (
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/canonical/lightsql/internal/typeinfo"
)

// The registry maps entity types to their Info. Infos are built on first
// use and kept for the life of the process. builds deduplicates concurrent
// first uses of a type so that it is built once.
var (
	registryMutex sync.RWMutex
	registry      = make(map[reflect.Type]*Info)
	builds        singleflight.Group
)

// Describe returns the Info of the entity type of sample, which may be a
// struct value, a pointer to one or a reflect.Type.
func Describe(sample any) (*Info, error) {
	if sample == nil {
		return nil, fmt.Errorf("%w: cannot describe nil", ErrMetadata)
	}
	typ, ok := sample.(reflect.Type)
	if !ok {
		typ = reflect.TypeOf(sample)
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return describe(typ)
}

// Of returns the Info of the entity type E.
func Of[E any]() (*Info, error) {
	return describe(reflect.TypeOf((*E)(nil)).Elem())
}

// MustOf is like Of but panics on error.
func MustOf[E any]() *Info {
	info, err := Of[E]()
	if err != nil {
		panic(err)
	}
	return info
}

func describe(typ reflect.Type) (*Info, error) {
	registryMutex.RLock()
	info, found := registry[typ]
	registryMutex.RUnlock()
	if found {
		return info, nil
	}

	// The key embeds the type's address as distinct types can share a name.
	v, err, _ := builds.Do(fmt.Sprintf("%s@%p", typ, typ), func() (any, error) {
		registryMutex.RLock()
		info, found := registry[typ]
		registryMutex.RUnlock()
		if found {
			return info, nil
		}

		info, err := build(typ)
		if err != nil {
			return nil, err
		}

		registryMutex.Lock()
		defer registryMutex.Unlock()
		if existing, ok := registry[typ]; ok {
			return existing, nil
		}
		registry[typ] = info
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Info), nil
}

// build generates the Info of an entity type.
func build(typ reflect.Type) (*Info, error) {
	ti, err := typeinfo.GetTypeInfo(typ)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMetadata, err)
	}

	info := &Info{
		typ:        typ,
		byProperty: make(map[string]int),
		accessor:   &Accessor{info: ti},
	}

	cols := make(columnSet)
	ordered := make([]*ColumnInfo, 0, len(ti.Members))
	for _, m := range ti.Members {
		c := &ColumnInfo{
			PropertyName:     m.Path,
			ColumnName:       m.Tag.Column,
			IsKey:            m.Tag.Key,
			IsSelectable:     !m.Tag.NoSelect,
			IsInsertable:     !m.Tag.NoInsert,
			IsUpdatable:      !m.Tag.NoUpdate && !m.Tag.Key,
			SelectExpression: m.Tag.Select,
			InsertExpression: m.Tag.Insert,
			UpdateExpression: m.Tag.Update,
		}
		if c.ColumnName == "" {
			c.ColumnName = typeinfo.LastName(m.Path)
		}
		if m.Tag.ColType != "" {
			ct, ok := columnTypes[m.Tag.ColType]
			if !ok {
				return nil, fmt.Errorf("%w: unknown column type %q for property %q of %s", ErrMetadata, m.Tag.ColType, m.Path, typ.Name())
			}
			c.ColumnType = ct
		}
		cols[m.Path] = c
		ordered = append(ordered, c)
	}

	for _, t := range optionTypes(typ) {
		o, ok := reflect.New(t).Interface().(Optioner)
		if !ok {
			continue
		}
		for _, opt := range o.EntityOptions() {
			if err := opt(cols); err != nil {
				return nil, fmt.Errorf("%w: %s: %s", ErrMetadata, t.Name(), err)
			}
		}
	}

	if len(ordered) == 0 {
		return nil, fmt.Errorf("%w: entity %s has no columns", ErrMetadata, typ.Name())
	}
	names := make(map[string]string)
	for i, c := range ordered {
		if other, ok := names[c.ColumnName]; ok {
			return nil, fmt.Errorf("%w: properties %q and %q of %s share column %q", ErrMetadata, other, c.PropertyName, typ.Name(), c.ColumnName)
		}
		names[c.ColumnName] = c.PropertyName
		info.columns = append(info.columns, *c)
		info.byProperty[c.PropertyName] = i
		if c.IsKey {
			info.keyColumns = append(info.keyColumns, *c)
		}
	}

	info.tableName, err = tableName(typ)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// optionTypes returns typ and the struct types it embeds, ancestors first.
func optionTypes(typ reflect.Type) []reflect.Type {
	var out []reflect.Type
	for _, t := range embedded(typ) {
		out = append(out, optionTypes(t)...)
	}
	return append(out, typ)
}

// embedded returns the struct types embedded by typ, in declaration order.
func embedded(typ reflect.Type) []reflect.Type {
	var out []reflect.Type
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.Anonymous {
			continue
		}
		t := f.Type
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() == reflect.Struct && !typeinfo.IsLeaf(t) {
			out = append(out, t)
		}
	}
	return out
}

// tableName resolves the table of typ, following "super" through the
// first embedded entity.
func tableName(typ reflect.Type) (string, error) {
	tn, ok := reflect.New(typ).Interface().(TableNamer)
	if !ok {
		return typ.Name(), nil
	}
	name := tn.TableName()
	if name != SuperTable {
		return name, nil
	}
	parents := embedded(typ)
	if len(parents) == 0 {
		return "", fmt.Errorf("%w: %s has table %q but embeds no entity", ErrMetadata, typ.Name(), SuperTable)
	}
	return tableName(parents[0])
}
