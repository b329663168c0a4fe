// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"
)

var cacheMutex sync.RWMutex
var cache = make(map[reflect.Type]*Info)

var (
	scannerInterface       = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	valuerInterface        = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	textUnmarshalInterface = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	timeType               = reflect.TypeOf(time.Time{})
)

// Info holds the flattened members of a struct type.
type Info struct {
	Type reflect.Type
	// Members is ordered top-down: the members of embedded structs come
	// before the fields declared by the struct itself.
	Members []*Member
	byPath  map[string]*Member
}

// Member returns the member at the given dotted property path.
func (info *Info) Member(path string) (*Member, bool) {
	m, ok := info.byPath[path]
	return m, ok
}

// GetTypeInfo returns the Info of the struct type of value, which may be a
// struct, a pointer to a struct or a reflect.Type of either. The Info is
// generated on first use and cached.
func GetTypeInfo(value any) (*Info, error) {
	if value == (any)(nil) {
		return nil, fmt.Errorf("cannot reflect nil value")
	}

	typ, ok := value.(reflect.Type)
	if !ok {
		typ = reflect.TypeOf(value)
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	cacheMutex.RLock()
	info, found := cache[typ]
	cacheMutex.RUnlock()
	if found {
		return info, nil
	}

	info, err := generate(typ)
	if err != nil {
		return nil, err
	}

	cacheMutex.Lock()
	if cached, ok := cache[typ]; ok {
		info = cached
	} else {
		cache[typ] = info
	}
	cacheMutex.Unlock()

	return info, nil
}

// generate walks the struct type and produces its flattened members.
func generate(typ reflect.Type) (*Info, error) {
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("can only reflect struct type, got %s", typ.Kind())
	}

	info := &Info{
		Type:   typ,
		byPath: make(map[string]*Member),
	}
	if err := walk(info, typ, nil, "", 0, map[reflect.Type]bool{}); err != nil {
		return nil, err
	}
	return info, nil
}

// walk appends the members of typ to info. Embedded structs are walked
// first and keep the prefix of their parent, nested structs extend it.
func walk(info *Info, typ reflect.Type, index []int, prefix string, depth int, seen map[reflect.Type]bool) error {
	if seen[typ] {
		return fmt.Errorf("recursive struct type %s", typ)
	}
	seen[typ] = true
	defer delete(seen, typ)

	// Ancestors first.
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.Anonymous {
			continue
		}
		ft := field.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Struct || IsLeaf(ft) || field.Tag.Get("db") == "-" {
			continue
		}
		if err := walk(info, ft, appendIndex(index, i), prefix, depth+1, seen); err != nil {
			return err
		}
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Anonymous {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && !IsLeaf(ft) {
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		tag, err := parseTag(field.Tag)
		if err != nil {
			return fmt.Errorf("field %s of struct %s: %w", field.Name, typ.Name(), err)
		}
		if tag.Skip {
			continue
		}

		path := prefix + PropertyName(field.Name)
		ft := field.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && !IsLeaf(ft) {
			if err := walk(info, ft, appendIndex(index, i), path+".", depth, seen); err != nil {
				return err
			}
			continue
		}

		if _, ok := info.byPath[path]; ok {
			return fmt.Errorf("duplicate property %q in struct %s", path, info.Type.Name())
		}
		m := &Member{
			Path:      path,
			FieldName: field.Name,
			Index:     appendIndex(index, i),
			Type:      field.Type,
			Owner:     typ,
			Depth:     depth,
			Tag:       tag,
		}
		info.Members = append(info.Members, m)
		info.byPath[path] = m
	}
	return nil
}

func appendIndex(index []int, i int) []int {
	out := make([]int, len(index), len(index)+1)
	copy(out, index)
	return append(out, i)
}

// IsLeaf reports whether a struct type is stored as a single value rather
// than walked as a nested structure.
func IsLeaf(typ reflect.Type) bool {
	if typ == timeType {
		return true
	}
	if typ.Implements(valuerInterface) || reflect.PointerTo(typ).Implements(scannerInterface) {
		return true
	}
	return reflect.PointerTo(typ).Implements(textUnmarshalInterface)
}

// PropertyName converts a Go field name into a lower camel case property
// name: FamilyName becomes familyName and ID becomes id.
func PropertyName(field string) string {
	runes := []rune(field)
	upper := 0
	for upper < len(runes) && unicode.IsUpper(runes[upper]) {
		upper++
	}
	switch {
	case upper == 0:
		return field
	case upper == len(runes):
		return string(toLower(runes))
	case upper > 1:
		// URLPath -> urlPath
		upper--
	}
	copy(runes, toLower(runes[:upper]))
	return string(runes)
}

func toLower(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// LastName returns the last segment of a dotted property path.
func LastName(path string) string {
	return path[strings.LastIndexByte(path, '.')+1:]
}
