// Package assert holds constructor-time precondition checks, a failed assertion is a
// programming error and panics.
package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics if value is nil, including a typed nil pointer stored in an interface.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			panic(fmt.Sprintf("expected %T to be not nil", value))
		}
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}
