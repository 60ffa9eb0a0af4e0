package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics when a required dependency is missing. Typed nil pointers (and nil maps,
// slices, funcs or channels) stored in an interface count as missing too.
func NotNil(value any, name string) {
	if isNil(value) {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
