// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeconv

import (
	"fmt"
	"reflect"
)

// Converter converts values of a source type into a destination type.
type Converter struct {
	src, dst reflect.Type
	fn       func(any) (any, error)
	// delegate converters produce an intermediate value that the registry
	// converts again to the destination type.
	delegate bool
}

// New returns a Converter from S to D.
func New[S, D any](fn func(S) (D, error)) *Converter {
	return &Converter{
		src: reflect.TypeOf((*S)(nil)).Elem(),
		dst: reflect.TypeOf((*D)(nil)).Elem(),
		fn: func(v any) (any, error) {
			s, ok := v.(S)
			if !ok {
				return nil, fmt.Errorf("expected %s, got %T", reflect.TypeOf((*S)(nil)).Elem(), v)
			}
			return fn(s)
		},
	}
}

// Func returns a Converter between the given types. fn receives values of
// type src and must return values assignable to dst.
func Func(src, dst reflect.Type, fn func(any) (any, error)) *Converter {
	return &Converter{src: src, dst: dst, fn: fn}
}

// Delegate returns a Converter whose fn maps src values to an intermediate
// value. A Registry converts the intermediate value to dst with its own
// converters, so that overrides registered later are honoured.
func Delegate(src, dst reflect.Type, fn func(any) (any, error)) *Converter {
	return &Converter{src: src, dst: dst, fn: fn, delegate: true}
}

// Source returns the source type of the converter.
func (c *Converter) Source() reflect.Type { return c.src }

// Destination returns the destination type of the converter.
func (c *Converter) Destination() reflect.Type { return c.dst }

// Convert applies the converter to v. v is converted to the source type
// first if it has a different type of the same kind.
func (c *Converter) Convert(v any) (any, error) {
	if v != nil && c.src.Kind() != reflect.Interface {
		rv := reflect.ValueOf(v)
		if rv.Type() != c.src && rv.Kind() == c.src.Kind() && rv.Type().ConvertibleTo(c.src) {
			v = rv.Convert(c.src).Interface()
		}
	}
	return c.fn(v)
}

func (c *Converter) String() string {
	return c.src.String() + "->" + c.dst.String()
}

// Compose returns a converter that applies a then b. The destination of a
// must be the source of b.
func Compose(a, b *Converter) (*Converter, error) {
	if a.dst != b.src {
		return nil, fmt.Errorf("cannot compose %s with %s", a, b)
	}
	return &Converter{
		src: a.src,
		dst: b.dst,
		fn: func(v any) (any, error) {
			mid, err := a.Convert(v)
			if err != nil {
				return nil, err
			}
			return b.Convert(mid)
		},
	}, nil
}

// MustCompose is like Compose but panics on error.
func MustCompose(a, b *Converter) *Converter {
	c, err := Compose(a, b)
	if err != nil {
		panic(err)
	}
	return c
}
