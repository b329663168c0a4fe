package typeinfo

import (
	"fmt"
	"reflect"
)

// ScanProxy is a shim for storing a converted result value into a field.
// The value may be the field type itself, a pointer to it, or nil.
type ScanProxy struct {
	original reflect.Value
	scan     reflect.Value
}

func (sp ScanProxy) OnSuccess() error {
	var val reflect.Value
	switch {
	case !sp.scan.IsValid():
		val = reflect.Zero(sp.original.Type())
	case sp.scan.Type().AssignableTo(sp.original.Type()):
		val = sp.scan
	case sp.scan.Kind() == reflect.Pointer && sp.scan.Type().Elem().AssignableTo(sp.original.Type()):
		if sp.scan.IsNil() {
			val = reflect.Zero(sp.original.Type())
		} else {
			val = sp.scan.Elem()
		}
	case sp.original.Kind() == reflect.Pointer && sp.scan.Type().AssignableTo(sp.original.Type().Elem()):
		val = reflect.New(sp.original.Type().Elem())
		val.Elem().Set(sp.scan)
	default:
		return fmt.Errorf("cannot assign %s to field of type %s", sp.scan.Type(), sp.original.Type())
	}
	sp.original.Set(val)
	return nil
}
