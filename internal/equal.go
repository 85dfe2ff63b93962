package internal

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/huandu/go-clone"
)

var deepOptions = []cmp.Option{
	cmpopts.EquateNaNs(),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Equal reports whether an observed value is unchanged.
//
// With deep set, a and b are compared structurally, unexported fields
// included. Otherwise they are compared by identity: slices, maps and funcs by
// the memory they point at, arrays and structs field by field under the same
// rule, everything else with ==. In both modes NaN equals NaN.
func Equal(a, b any, deep bool) bool {
	if deep {
		return cmp.Equal(a, b, deepOptions...)
	}

	return identical(reflect.ValueOf(a), reflect.ValueOf(b))
}

// Copy returns a deep copy of v, used as the last value of deep watches.
// Unexported fields are copied and pointer cycles are preserved.
func Copy(v any) any {
	return clone.Slowly(v)
}

func identical(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}

	if isNaN(a) && isNaN(b) {
		return true
	}

	if a.Type() != b.Type() {
		return false
	}

	switch a.Kind() {
	case reflect.Slice:
		return a.Pointer() == b.Pointer() && a.Len() == b.Len()
	case reflect.Map, reflect.Func:
		return a.Pointer() == b.Pointer()
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return identical(a.Elem(), b.Elem())
	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !identical(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !identical(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	default:
		return a.Equal(b)
	}
}

func isNaN(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float() != v.Float()
	}

	return false
}
