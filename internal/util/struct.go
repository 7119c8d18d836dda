package util

import (
	"fmt"
	"reflect"
)

// IsStructInitialized checks that every exported pointer, interface, map, slice or func field of the struct
// pointed to by s is non-nil. Fields tagged `init:"-"` are skipped.
func IsStructInitialized(s any) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("struct is nil")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return fmt.Errorf("expected struct, got %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("init") == "-" {
			continue
		}

		//nolint:exhaustive
		switch v.Field(i).Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			if v.Field(i).IsNil() {
				return fmt.Errorf("field %s is not initialized", field.Name)
			}
		}
	}

	return nil
}
