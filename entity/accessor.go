// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package entity

import (
	"fmt"
	"reflect"

	"github.com/canonical/lightsql/internal/typeinfo"
)

// Accessor gets and sets entity properties by dotted path. Its field index
// paths are computed once per entity type.
type Accessor struct {
	info *typeinfo.Info
}

func (a *Accessor) member(path string) (*typeinfo.Member, error) {
	m, ok := a.info.Member(path)
	if !ok {
		return nil, fmt.Errorf("%w: no property %q in %s", ErrMetadata, path, a.info.Type.Name())
	}
	return m, nil
}

// root returns the struct value of entity, which must be of the entity
// type or a pointer to it.
func (a *Accessor) root(entity any) (reflect.Value, error) {
	v := reflect.ValueOf(entity)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil %s", v.Type())
		}
		v = v.Elem()
	}
	if v.Type() != a.info.Type {
		return reflect.Value{}, fmt.Errorf("expected %s, got %T", a.info.Type, entity)
	}
	return v, nil
}

// Get returns the value of a property. It returns nil when a nil pointer
// struct lies on the path.
func (a *Accessor) Get(entity any, path string) (any, error) {
	m, err := a.member(path)
	if err != nil {
		return nil, err
	}
	root, err := a.root(entity)
	if err != nil {
		return nil, err
	}
	v, ok := m.Get(root)
	if !ok {
		return nil, nil
	}
	return v.Interface(), nil
}

// Set stores value into a property of entity, which must be a pointer.
// A nil value stores the zero value.
func (a *Accessor) Set(entity any, path string, value any) error {
	m, err := a.member(path)
	if err != nil {
		return err
	}
	if reflect.ValueOf(entity).Kind() != reflect.Pointer {
		return fmt.Errorf("cannot set %q on non-pointer %T", path, entity)
	}
	root, err := a.root(entity)
	if err != nil {
		return err
	}
	return m.Set(root, reflect.ValueOf(value))
}

// New returns a pointer to a new zero entity.
func (a *Accessor) New() any {
	return reflect.New(a.info.Type).Interface()
}

// TypeOf returns the declared type of a property.
func (a *Accessor) TypeOf(path string) (reflect.Type, error) {
	m, err := a.member(path)
	if err != nil {
		return nil, err
	}
	return m.Type, nil
}
