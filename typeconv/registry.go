// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeconv

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrConvert is matched by every conversion failure.
var ErrConvert = errors.New("cannot convert value")

// ConvertError reports a value that could not be converted.
type ConvertError struct {
	Value any
	Dst   reflect.Type
	Err   error
}

func (e *ConvertError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot convert %T to %s: %s", e.Value, e.Dst, e.Err)
	}
	return fmt.Sprintf("cannot convert %T to %s: no converter", e.Value, e.Dst)
}

func (e *ConvertError) Is(target error) bool { return target == ErrConvert }

func (e *ConvertError) Unwrap() error { return e.Err }

var anyType = reflect.TypeOf((*any)(nil)).Elem()

type key struct {
	src, dst reflect.Type
}

// Registry holds converters keyed by their (source, destination) pair.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	converters map[key]*Converter
	// interfaces are the interface source types with a converter, in
	// registration order.
	interfaces []reflect.Type
	// resolved caches lookups that needed a fallback.
	resolved map[key]*Converter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		converters: make(map[key]*Converter),
		resolved:   make(map[key]*Converter),
	}
}

// Put registers converters, replacing any with the same type pair.
func (r *Registry) Put(cs ...*Converter) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cs {
		k := key{c.src, c.dst}
		if _, ok := r.converters[k]; !ok && c.src.Kind() == reflect.Interface && c.src != anyType {
			r.interfaces = append(r.interfaces, c.src)
		}
		r.converters[k] = c
	}
	clear(r.resolved)
	return r
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewRegistry()
	for k, c := range r.converters {
		out.converters[k] = c
	}
	out.interfaces = append(out.interfaces, r.interfaces...)
	return out
}

// Len returns the number of registered converters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.converters)
}

// Get finds a converter from src to dst. The exact pair is tried first,
// then the source falls back to the interfaces it implements, its kind's
// base type and finally any; the destination falls back to its kind's
// base type.
func (r *Registry) Get(src, dst reflect.Type) (*Converter, bool) {
	k := key{src, dst}
	r.mu.RLock()
	c, ok := r.converters[k]
	if !ok {
		c, ok = r.resolved[k]
	}
	if ok {
		r.mu.RUnlock()
		return c, true
	}
	var found *Converter
	for _, s := range r.sources(src) {
		for _, d := range destinations(dst) {
			if c, ok := r.converters[key{s, d}]; ok {
				found = c
				break
			}
		}
		if found != nil {
			break
		}
	}
	r.mu.RUnlock()
	if found == nil {
		return nil, false
	}

	r.mu.Lock()
	r.resolved[k] = found
	r.mu.Unlock()
	return found, true
}

func (r *Registry) has(k key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.converters[k]
	return ok
}

// sources lists the lookup candidates for a source type, most specific
// first. It is called with the read lock held.
func (r *Registry) sources(src reflect.Type) []reflect.Type {
	out := []reflect.Type{src}
	for _, i := range r.interfaces {
		if src.Implements(i) {
			out = append(out, i)
		}
	}
	if base := baseType(src); base != nil && base != src {
		out = append(out, base)
	}
	return append(out, anyType)
}

func destinations(dst reflect.Type) []reflect.Type {
	if base := baseType(dst); base != nil && base != dst {
		return []reflect.Type{dst, base}
	}
	return []reflect.Type{dst}
}

var baseTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeOf(false),
	reflect.Int:     reflect.TypeOf(int(0)),
	reflect.Int8:    reflect.TypeOf(int8(0)),
	reflect.Int16:   reflect.TypeOf(int16(0)),
	reflect.Int32:   reflect.TypeOf(int32(0)),
	reflect.Int64:   reflect.TypeOf(int64(0)),
	reflect.Uint:    reflect.TypeOf(uint(0)),
	reflect.Uint8:   reflect.TypeOf(uint8(0)),
	reflect.Uint16:  reflect.TypeOf(uint16(0)),
	reflect.Uint32:  reflect.TypeOf(uint32(0)),
	reflect.Uint64:  reflect.TypeOf(uint64(0)),
	reflect.Float32: reflect.TypeOf(float32(0)),
	reflect.Float64: reflect.TypeOf(float64(0)),
	reflect.String:  reflect.TypeOf(""),
}

var bytesType = reflect.TypeOf([]byte(nil))

// baseType returns the unnamed type of the same kind as t, or nil.
func baseType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return bytesType
	}
	return baseTypes[t.Kind()]
}

// Convert converts value to the dst type. nil converts to Null for
// SQLString and to nil otherwise. Non-nil pointers are dereferenced
// unless a converter is registered for the pointer type itself.
func (r *Registry) Convert(value any, dst reflect.Type) (any, error) {
	if value == nil {
		if dst == sqlStringType {
			return Null, nil
		}
		return nil, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type() == dst {
		return value, nil
	}
	if rv.Kind() == reflect.Pointer {
		if !r.has(key{rv.Type(), dst}) {
			if rv.IsNil() {
				return r.Convert(nil, dst)
			}
			return r.Convert(rv.Elem().Interface(), dst)
		}
	}

	if c, ok := r.Get(rv.Type(), dst); ok {
		out, err := c.Convert(value)
		if err != nil {
			return nil, &ConvertError{Value: value, Dst: dst, Err: err}
		}
		if c.delegate {
			return r.Convert(out, dst)
		}
		return adapt(out, dst, value)
	}

	// Capabilities of the types themselves.
	if v, ok := value.(driver.Valuer); ok {
		dv, err := v.Value()
		if err != nil {
			return nil, &ConvertError{Value: value, Dst: dst, Err: err}
		}
		if dv == nil || reflect.TypeOf(dv) != rv.Type() {
			return r.Convert(dv, dst)
		}
	}
	if dst.Kind() != reflect.Interface && dst != sqlStringType {
		ptr := reflect.New(dst)
		if s, ok := ptr.Interface().(sql.Scanner); ok {
			if err := s.Scan(value); err != nil {
				return nil, &ConvertError{Value: value, Dst: dst, Err: err}
			}
			return ptr.Elem().Interface(), nil
		}
		if u, ok := ptr.Interface().(encoding.TextUnmarshaler); ok {
			var text []byte
			switch v := value.(type) {
			case string:
				text = []byte(v)
			case []byte:
				text = v
			}
			if text != nil {
				if err := u.UnmarshalText(text); err != nil {
					return nil, &ConvertError{Value: value, Dst: dst, Err: err}
				}
				return ptr.Elem().Interface(), nil
			}
		}
	}
	if rv.Type().AssignableTo(dst) {
		return value, nil
	}
	if rv.Kind() == dst.Kind() && rv.Type().ConvertibleTo(dst) {
		return rv.Convert(dst).Interface(), nil
	}
	return nil, &ConvertError{Value: value, Dst: dst}
}

// adapt brings the output of a converter found through a base type to
// the requested destination type.
func adapt(out any, dst reflect.Type, in any) (any, error) {
	if out == nil {
		return nil, nil
	}
	ov := reflect.ValueOf(out)
	if ov.Type() == dst || dst.Kind() == reflect.Interface {
		return out, nil
	}
	if ov.Type().ConvertibleTo(dst) && ov.Kind() == dst.Kind() {
		return ov.Convert(dst).Interface(), nil
	}
	return nil, &ConvertError{Value: in, Dst: dst, Err: fmt.Errorf("converter returned %s", ov.Type())}
}
