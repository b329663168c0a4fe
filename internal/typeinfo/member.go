// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Member is a leaf field of an entity struct, reached from the root struct
// through embedded and nested structs.
type Member struct {
	// Path is the dotted property path, e.g. "name.first".
	Path string

	// FieldName is the Go name of the field.
	FieldName string

	// Index is the field index path for reflect.Value.FieldByIndex, except
	// that pointers along the path are followed.
	Index []int

	// Type is the declared type of the field.
	Type reflect.Type

	// Owner is the struct type that declares the field.
	Owner reflect.Type

	// Depth is the embedding depth of Owner below the root struct.
	Depth int

	Tag Tag
}

// Tag holds the column settings parsed from the struct tags of a field.
type Tag struct {
	Column   string
	Skip     bool
	Key      bool
	NoInsert bool
	NoUpdate bool
	NoSelect bool
	Select   string
	Insert   string
	Update   string
	ColType  string
}

// This expression should be aligned with the chars allowed in names by the
// template parser.
var validColNameRx = regexp.MustCompile(`^([a-zA-Z_])+([a-zA-Z_0-9])*$`)

// parseTag parses the "db" tag and the expression tags of a struct field.
// The db tag has the form "column,option,...".
func parseTag(st reflect.StructTag) (Tag, error) {
	tag := Tag{
		Select:  st.Get("select"),
		Insert:  st.Get("insert"),
		Update:  st.Get("update"),
		ColType: st.Get("coltype"),
	}
	db, ok := st.Lookup("db")
	if !ok {
		return tag, nil
	}
	if db == "-" {
		tag.Skip = true
		return tag, nil
	}

	options := strings.Split(db, ",")
	tag.Column = options[0]
	if tag.Column != "" && !validColNameRx.MatchString(tag.Column) {
		return Tag{}, fmt.Errorf("invalid column name %q in 'db' tag", tag.Column)
	}
	for _, opt := range options[1:] {
		switch strings.ToLower(strings.TrimSpace(opt)) {
		case "key":
			tag.Key = true
		case "noinsert":
			tag.NoInsert = true
		case "noupdate":
			tag.NoUpdate = true
		case "noselect":
			tag.NoSelect = true
		default:
			return Tag{}, fmt.Errorf("unexpected tag value %q", opt)
		}
	}
	return tag, nil
}

// Get returns the value of the member in root, which must be a struct value
// of the Info type. ok is false when a nil pointer is met on the way.
func (m *Member) Get(root reflect.Value) (v reflect.Value, ok bool) {
	v = root
	for _, i := range m.Index {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v, true
}

// Settable returns the addressable field of the member in root, allocating
// nil pointer structs on the way. root must be addressable.
func (m *Member) Settable(root reflect.Value) (reflect.Value, error) {
	v := root
	for _, i := range m.Index {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("cannot allocate %s on the way to %q", v.Type(), m.Path)
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	if !v.CanSet() {
		return reflect.Value{}, fmt.Errorf("internal error: cannot set field %s of struct %s", m.FieldName, m.Owner.Name())
	}
	return v, nil
}

// Set assigns val to the member in root. An invalid val, or a nil pointer
// val, stores the zero value of the field.
func (m *Member) Set(root reflect.Value, val reflect.Value) error {
	field, err := m.Settable(root)
	if err != nil {
		return err
	}
	sp := ScanProxy{original: field, scan: val}
	return sp.OnSuccess()
}
